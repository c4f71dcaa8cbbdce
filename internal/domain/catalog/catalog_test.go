package catalog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivePriceAt(t *testing.T) {
	now := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-30 * 24 * time.Hour)
	recent := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name    string
		prices  []Price
		want    decimal.Decimal
		wantErr error
	}{
		{
			name: "open-ended price is always active",
			prices: []Price{
				{Value: decimal.NewFromInt(15), StartDate: past},
			},
			want: decimal.NewFromInt(15),
		},
		{
			name: "bounded window containing now",
			prices: []Price{
				{Value: decimal.NewFromInt(20), StartDate: past, EndDate: &future},
			},
			want: decimal.NewFromInt(20),
		},
		{
			name: "expired window is skipped",
			prices: []Price{
				{Value: decimal.NewFromInt(10), StartDate: past, EndDate: &recent},
				{Value: decimal.NewFromInt(12), StartDate: recent},
			},
			want: decimal.NewFromInt(12),
		},
		{
			name: "window starting in the future is skipped",
			prices: []Price{
				{Value: decimal.NewFromInt(99), StartDate: future, EndDate: ptr(future.Add(time.Hour))},
				{Value: decimal.NewFromInt(7), StartDate: past},
			},
			want: decimal.NewFromInt(7),
		},
		{
			name: "first match wins on overlapping windows",
			prices: []Price{
				{Value: decimal.NewFromInt(5), StartDate: past, EndDate: &future},
				{Value: decimal.NewFromInt(6), StartDate: past, EndDate: &future},
			},
			want: decimal.NewFromInt(5),
		},
		{
			name:    "empty price list",
			prices:  nil,
			wantErr: ErrNoActivePrice,
		},
		{
			name: "no window covers now",
			prices: []Price{
				{Value: decimal.NewFromInt(10), StartDate: past, EndDate: &recent},
			},
			wantErr: ErrNoActivePrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ActivePriceAt(tt.prices, now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestProductActivePriceAtWrapsProductID(t *testing.T) {
	p := &Product{ID: "p1"}
	_, err := p.ActivePriceAt(time.Now())
	require.ErrorIs(t, err, ErrNoActivePrice)
	assert.Contains(t, err.Error(), "p1")
}

func ptr(t time.Time) *time.Time { return &t }
