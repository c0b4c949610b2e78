package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/repository"
	"github.com/utafrali/vingo-review/pkg/database"
	apperrors "github.com/utafrali/vingo-review/pkg/errors"
)

const (
	setItemRatingSQL = `UPDATE items SET rating = $2 WHERE id::text = $1`
	getItemRatingSQL = `SELECT rating FROM items WHERE id::text = $1`
)

// ItemRepository writes the rating aggregate onto catalog items.
type ItemRepository struct {
	pool database.DBTX
}

// NewItemRepository creates an item rating repository.
func NewItemRepository(pool database.DBTX) *ItemRepository {
	return &ItemRepository{pool: pool}
}

var _ repository.ItemRatingWriter = (*ItemRepository)(nil)

func (r *ItemRepository) SetItemRating(ctx context.Context, itemID string, rating domain.ItemRating) (err error) {
	ctx, end := database.TraceQuery(ctx, "SetItemRating", setItemRatingSQL)
	defer func() { end(err) }()

	payload, err := json.Marshal(rating)
	if err != nil {
		return fmt.Errorf("marshal item rating: %w", err)
	}

	tag, err := r.pool.Exec(ctx, setItemRatingSQL, itemID, payload)
	if err != nil {
		return fmt.Errorf("set rating for item %s: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("item", itemID)
	}
	return nil
}

func (r *ItemRepository) GetItemRating(ctx context.Context, itemID string) (_ domain.ItemRating, err error) {
	ctx, end := database.TraceQuery(ctx, "GetItemRating", getItemRatingSQL)
	defer func() { end(err) }()

	var raw []byte
	err = r.pool.QueryRow(ctx, getItemRatingSQL, itemID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ItemRating{}, apperrors.NotFound("item", itemID)
	}
	if err != nil {
		return domain.ItemRating{}, fmt.Errorf("get rating for item %s: %w", itemID, err)
	}

	var rating domain.ItemRating
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rating); err != nil {
			return domain.ItemRating{}, fmt.Errorf("unmarshal item rating: %w", err)
		}
	}
	return rating, nil
}
