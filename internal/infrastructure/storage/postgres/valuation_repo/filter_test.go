package valuation_repo

import (
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/valuation"
)

func baseSelect() squirrel.SelectBuilder {
	return squirrel.StatementBuilder.
		PlaceholderFormat(squirrel.Dollar).
		Select("*").
		From("t")
}

func TestApplyValueFilter(t *testing.T) {
	whID := id.New()

	tests := []struct {
		name     string
		filter   valuation.Filter
		wantSQL  []string
		wantArgs int
	}{
		{
			name:     "empty filter adds nothing",
			filter:   valuation.Filter{},
			wantSQL:  nil,
			wantArgs: 0,
		},
		{
			name:     "warehouse only",
			filter:   valuation.Filter{WarehouseID: &whID},
			wantSQL:  []string{"w.id = $1"},
			wantArgs: 1,
		},
		{
			name:   "all predicates",
			filter: valuation.Filter{WarehouseID: &whID, Category: "widgets", Currency: "USD"},
			wantSQL: []string{
				"w.id = $1",
				"i.category = $2",
				"i.currency_code = $3",
			},
			wantArgs: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := applyValueFilter(baseSelect(), tt.filter).ToSql()
			require.NoError(t, err)
			for _, frag := range tt.wantSQL {
				assert.Contains(t, sql, frag)
			}
			assert.Len(t, args, tt.wantArgs)
		})
	}
}

// The lot query only values trackable items, but the default-cost fallback
// exists for untracked-only data: it must not filter on trackability or a
// deployment with only untracked movements reports an empty valuation.
func TestValueQueriesTrackabilityPredicate(t *testing.T) {
	b := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	lotSQL, _, err := lotValueQuery(b, valuation.Filter{}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, lotSQL, "i.is_trackable")

	defSQL, _, err := defaultCostQuery(b, valuation.Filter{}).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, defSQL, "is_trackable")
	assert.Contains(t, defSQL, "i.is_active")
}

func TestApplyHistoryFilter(t *testing.T) {
	itemID := id.New()
	mt := ledger.TypeSale
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   valuation.HistoryFilter
		wantSQL  []string
		wantArgs int
	}{
		{
			name:     "empty filter adds nothing",
			filter:   valuation.HistoryFilter{},
			wantArgs: 0,
		},
		{
			name:   "item and type",
			filter: valuation.HistoryFilter{ItemID: &itemID, Type: &mt},
			wantSQL: []string{
				"stock_item_id = $1",
				"movement_type = $2",
			},
			wantArgs: 2,
		},
		{
			// FromDate inclusive, ToDate exclusive.
			name:   "half-open date range",
			filter: valuation.HistoryFilter{FromDate: &from, ToDate: &to},
			wantSQL: []string{
				"moved_at >= $1",
				"moved_at < $2",
			},
			wantArgs: 2,
		},
		{
			name:   "pagination",
			filter: valuation.HistoryFilter{Limit: 50, Offset: 100},
			wantSQL: []string{
				"LIMIT 50",
				"OFFSET 100",
			},
			wantArgs: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := applyHistoryFilter(baseSelect(), tt.filter).ToSql()
			require.NoError(t, err)
			for _, frag := range tt.wantSQL {
				assert.Contains(t, sql, frag)
			}
			assert.Len(t, args, tt.wantArgs)
		})
	}
}
