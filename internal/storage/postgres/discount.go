package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eminaliyev/gift-api/internal/domain/discount"
)

const getDiscountSQL = `SELECT code, type, value, use_limit, remaining, start_date, end_date
	FROM discounts WHERE code = $1`

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindByCode looks up a discount rule by its exact code.
// Returns discount.ErrNotFound when no such code exists.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Discount, error) {
	rows, err := r.pool.Query(ctx, getDiscountSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding discount %q: %w", code, err)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("finding discount %q: %w", code, err)
	}
	return &d, nil
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d         discount.Discount
		dType     string
		limit     *int32
		remaining *int32
	)
	err := row.Scan(&d.Code, &dType, &d.Value, &limit, &remaining, &d.StartDate, &d.EndDate)
	d.Type = discount.Type(dType)
	if limit != nil {
		v := int(*limit)
		d.Limit = &v
	}
	if remaining != nil {
		v := int(*remaining)
		d.Remaining = &v
	}
	return d, err
}
