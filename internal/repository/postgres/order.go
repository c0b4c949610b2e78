package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/repository"
	"github.com/utafrali/vingo-review/pkg/database"
)

// Status is checked on the order as a whole; order_items carries no
// per-line fulfillment state in this schema.
const findDeliveredOrdersSQL = `
	SELECT o.id::text, o.user_id::text, o.status, o.created_at
	FROM orders o
	WHERE o.user_id::text = $1
	  AND o.status = $3
	  AND EXISTS (
	      SELECT 1 FROM order_items oi
	      WHERE oi.order_id = o.id AND oi.item_id::text = $2
	  )
	ORDER BY o.created_at ASC, o.id ASC`

// OrderRepository reads the order ledger owned by the order service.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a read-only order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

var _ repository.OrderReader = (*OrderRepository)(nil)

func (r *OrderRepository) FindOrdersByUserAndItemStatus(ctx context.Context, userID, itemID, status string) (_ []domain.OrderRef, err error) {
	ctx, end := database.TraceQuery(ctx, "FindOrdersByUserAndItemStatus", findDeliveredOrdersSQL)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, findDeliveredOrdersSQL, userID, itemID, status)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.OrderRef{}
	for rows.Next() {
		var o domain.OrderRef
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}
