package discount

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	discount *Discount
	err      error
	lastCode string
}

func (m *mockRepo) FindByCode(_ context.Context, code string) (*Discount, error) {
	m.lastCode = code
	if m.err != nil {
		return nil, m.err
	}
	return m.discount, nil
}

func intPtr(v int) *int { return &v }

func TestEvaluatorApply(t *testing.T) {
	fixedNow := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)
	windowStart := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	pastEnd := time.Date(2023, 2, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		repo          *mockRepo
		total         decimal.Decimal
		code          string
		want          decimal.Decimal
		wantApplied   bool
		wantDecrement bool
	}{
		{
			name:  "empty code returns total unchanged without lookup",
			repo:  &mockRepo{},
			total: decimal.NewFromInt(100),
			code:  "",
			want:  decimal.NewFromInt(100),
		},
		{
			name:  "unknown code is a silent no-op",
			repo:  &mockRepo{err: ErrNotFound},
			total: decimal.NewFromInt(100),
			code:  "BOGUS",
			want:  decimal.NewFromInt(100),
		},
		{
			name: "percentage of total",
			repo: &mockRepo{discount: &Discount{
				Code: "TEST15", Type: TypePercentageTotal,
				Value:     decimal.NewFromInt(15),
				StartDate: windowStart, EndDate: &windowEnd,
			}},
			total:       decimal.NewFromInt(100),
			code:        "TEST15",
			want:        decimal.NewFromInt(85),
			wantApplied: true,
		},
		{
			name: "fixed amount off total",
			repo: &mockRepo{discount: &Discount{
				Code: "FIX15", Type: TypeFixedTotal,
				Value:     decimal.NewFromInt(15),
				StartDate: windowStart, EndDate: &windowEnd,
			}},
			total:       decimal.NewFromInt(60),
			code:        "FIX15",
			want:        decimal.NewFromInt(45),
			wantApplied: true,
		},
		{
			name: "fixed discount may drive the total negative",
			repo: &mockRepo{discount: &Discount{
				Code: "FIX15", Type: TypeFixedTotal,
				Value:     decimal.NewFromInt(15),
				StartDate: windowStart,
			}},
			total:       decimal.NewFromInt(10),
			code:        "FIX15",
			want:        decimal.NewFromInt(-5),
			wantApplied: true,
		},
		{
			name: "remaining zero is a silent no-op regardless of type",
			repo: &mockRepo{discount: &Discount{
				Code: "USEDUP", Type: TypePercentageTotal,
				Value:     decimal.NewFromInt(50),
				Remaining: intPtr(0), Limit: intPtr(10),
				StartDate: windowStart,
			}},
			total: decimal.NewFromInt(200),
			code:  "USEDUP",
			want:  decimal.NewFromInt(200),
		},
		{
			name: "outside validity window is a no-op",
			repo: &mockRepo{discount: &Discount{
				Code: "OLD", Type: TypePercentageTotal,
				Value:     decimal.NewFromInt(15),
				StartDate: windowStart, EndDate: &pastEnd,
			}},
			total: decimal.NewFromInt(100),
			code:  "OLD",
			want:  decimal.NewFromInt(100),
		},
		{
			name: "nil end date means always within window",
			repo: &mockRepo{discount: &Discount{
				Code: "OPEN", Type: TypeFixedTotal,
				Value:     decimal.NewFromInt(5),
				StartDate: windowStart,
			}},
			total:       decimal.NewFromInt(30),
			code:        "OPEN",
			want:        decimal.NewFromInt(25),
			wantApplied: true,
		},
		{
			name: "unknown type is a forward-compatible no-op",
			repo: &mockRepo{discount: &Discount{
				Code: "WEIRD", Type: Type("BUY_ONE_GET_ONE"),
				Value:     decimal.NewFromInt(50),
				StartDate: windowStart,
			}},
			total: decimal.NewFromInt(40),
			code:  "WEIRD",
			want:  decimal.NewFromInt(40),
		},
		{
			name: "limited code flags decrement when applied",
			repo: &mockRepo{discount: &Discount{
				Code: "LIM", Type: TypePercentageTotal,
				Value: decimal.NewFromInt(10),
				Limit: intPtr(100), Remaining: intPtr(42),
				StartDate: windowStart,
			}},
			total:         decimal.NewFromInt(100),
			code:          "LIM",
			want:          decimal.NewFromInt(90),
			wantApplied:   true,
			wantDecrement: true,
		},
		{
			name: "unlimited code never flags decrement",
			repo: &mockRepo{discount: &Discount{
				Code: "UNLIM", Type: TypePercentageTotal,
				Value:     decimal.NewFromInt(10),
				StartDate: windowStart,
			}},
			total:       decimal.NewFromInt(100),
			code:        "UNLIM",
			want:        decimal.NewFromInt(90),
			wantApplied: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(tt.repo).WithNow(func() time.Time { return fixedNow })

			got, err := e.Apply(context.Background(), tt.total, tt.code)
			require.NoError(t, err)

			assert.True(t, tt.want.Equal(got.DiscountTotal),
				"expected %s, got %s", tt.want, got.DiscountTotal)
			assert.Equal(t, tt.wantApplied, got.Applied)
			assert.Equal(t, tt.wantDecrement, got.ShouldDecrement)
		})
	}
}

func TestEvaluatorApplySkipsLookupForEmptyCode(t *testing.T) {
	repo := &mockRepo{err: errors.New("should not be called")}
	e := NewEvaluator(repo)

	got, err := e.Apply(context.Background(), decimal.NewFromInt(10), "")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(got.DiscountTotal))
	assert.Empty(t, repo.lastCode)
}

func TestEvaluatorApplyPropagatesRepoError(t *testing.T) {
	repo := &mockRepo{err: errors.New("connection reset")}
	e := NewEvaluator(repo)

	_, err := e.Apply(context.Background(), decimal.NewFromInt(10), "ANY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup discount")
}
