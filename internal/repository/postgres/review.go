package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/repository"
	"github.com/utafrali/vingo-review/pkg/database"
	apperrors "github.com/utafrali/vingo-review/pkg/errors"
)

// reviewItemUserKey is the unique constraint on (item_id, user_id).
const reviewItemUserKey = "reviews_item_user_key"

const reviewColumns = `id, item_id, user_id, order_id, rating, text, images, created_at, updated_at`

const (
	insertReviewSQL = `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	getReviewByIDSQL = `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	getReviewByItemAndUserSQL = `SELECT ` + reviewColumns + ` FROM reviews WHERE item_id = $1 AND user_id = $2`

	updateReviewContentSQL = `
		UPDATE reviews SET rating = $2, text = $3, updated_at = $4
		WHERE id = $1`

	deleteReviewSQL = `DELETE FROM reviews WHERE id = $1`

	listReviewsSQL = `
		SELECT ` + reviewColumns + `, count(*) OVER() AS total_count
		FROM reviews
		WHERE item_id = $1
		ORDER BY %s
		LIMIT $2 OFFSET $3`

	countReviewsSQL = `SELECT COUNT(*) FROM reviews WHERE item_id = $1`

	ratingsByItemSQL = `SELECT rating FROM reviews WHERE item_id = $1`

	ratingCountsSQL = `SELECT rating, COUNT(*) FROM reviews WHERE item_id = $1 GROUP BY rating`
)

// orderClauses are whitelisted ORDER BY clauses per sort key. Every clause
// ends in a unique column so pages never overlap.
var orderClauses = map[domain.ReviewSort]string{
	domain.SortNewest:  "created_at DESC, id DESC",
	domain.SortOldest:  "created_at ASC, id ASC",
	domain.SortHighest: "rating DESC, created_at DESC, id DESC",
	domain.SortLowest:  "rating ASC, created_at DESC, id DESC",
}

func orderClause(s domain.ReviewSort) string {
	if c, ok := orderClauses[s]; ok {
		return c
	}
	return orderClauses[domain.SortNewest]
}

// ReviewRepository stores reviews in the reviews table.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateReview", insertReviewSQL)
	defer func() { end(err) }()

	if review.ID == "" {
		review.ID = uuid.NewString()
	}

	images, err := marshalImages(review.Images)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, insertReviewSQL,
		review.ID,
		review.ItemID,
		review.UserID,
		review.OrderID,
		review.Rating,
		review.Text,
		images,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, reviewItemUserKey) {
			return domain.ErrAlreadyReviewed
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (_ *domain.Review, err error) {
	if !validID(id) {
		return nil, apperrors.NotFound("review", id)
	}

	ctx, end := database.TraceQuery(ctx, "GetReviewByID", getReviewByIDSQL)
	defer func() { end(err) }()

	rv, err := scanReview(r.pool.QueryRow(ctx, getReviewByIDSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("review", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get review %s: %w", id, err)
	}
	return rv, nil
}

func (r *ReviewRepository) GetByItemAndUser(ctx context.Context, itemID, userID string) (_ *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, "GetReviewByItemAndUser", getReviewByItemAndUserSQL)
	defer func() { end(err) }()

	rv, err := scanReview(r.pool.QueryRow(ctx, getReviewByItemAndUserSQL, itemID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("review", itemID+"/"+userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get review for item %s user %s: %w", itemID, userID, err)
	}
	return rv, nil
}

func (r *ReviewRepository) UpdateContent(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceQuery(ctx, "UpdateReviewContent", updateReviewContentSQL)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, updateReviewContentSQL, review.ID, review.Rating, review.Text, review.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update review %s: %w", review.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", review.ID)
	}
	return nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id string) (err error) {
	if !validID(id) {
		return apperrors.NotFound("review", id)
	}

	ctx, end := database.TraceQuery(ctx, "DeleteReview", deleteReviewSQL)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, deleteReviewSQL, id)
	if err != nil {
		return fmt.Errorf("delete review %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}
	return nil
}

func (r *ReviewRepository) ListByItem(ctx context.Context, filter repository.ReviewFilter) (_ []domain.Review, _ int, err error) {
	query := fmt.Sprintf(listReviewsSQL, orderClause(filter.Sort))

	ctx, end := database.TraceQuery(ctx, "ListReviewsByItem", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, filter.ItemID, filter.PerPage, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	total := 0
	for rows.Next() {
		var (
			rv     domain.Review
			images []byte
		)
		if err := rows.Scan(
			&rv.ID,
			&rv.ItemID,
			&rv.UserID,
			&rv.OrderID,
			&rv.Rating,
			&rv.Text,
			&images,
			&rv.CreatedAt,
			&rv.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		if rv.Images, err = unmarshalImages(images); err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	// A page past the end carries no window count.
	if len(reviews) == 0 && filter.Offset() > 0 {
		if err := r.pool.QueryRow(ctx, countReviewsSQL, filter.ItemID).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count reviews: %w", err)
		}
	}

	return reviews, total, nil
}

func (r *ReviewRepository) RatingsByItem(ctx context.Context, itemID string) (_ []int, err error) {
	ctx, end := database.TraceQuery(ctx, "RatingsByItem", ratingsByItemSQL)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, ratingsByItemSQL, itemID)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	ratings := []int{}
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return ratings, nil
}

func (r *ReviewRepository) RatingCounts(ctx context.Context, itemID string) (_ map[int]int, err error) {
	ctx, end := database.TraceQuery(ctx, "RatingCounts", ratingCountsSQL)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, ratingCountsSQL, itemID)
	if err != nil {
		return nil, fmt.Errorf("query rating counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan rating count: %w", err)
		}
		counts[rating] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating counts: %w", err)
	}
	return counts, nil
}

// validID reports whether id can name a row in the uuid primary key. Other
// strings would surface as a cast error instead of a miss.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var (
		rv     domain.Review
		images []byte
	)
	if err := row.Scan(
		&rv.ID,
		&rv.ItemID,
		&rv.UserID,
		&rv.OrderID,
		&rv.Rating,
		&rv.Text,
		&images,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if rv.Images, err = unmarshalImages(images); err != nil {
		return nil, err
	}
	return &rv, nil
}

func marshalImages(images []string) ([]byte, error) {
	if images == nil {
		images = []string{}
	}
	b, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("marshal review images: %w", err)
	}
	return b, nil
}

func unmarshalImages(raw []byte) ([]string, error) {
	images := []string{}
	if len(raw) == 0 {
		return images, nil
	}
	if err := json.Unmarshal(raw, &images); err != nil {
		return nil, fmt.Errorf("unmarshal review images: %w", err)
	}
	return images, nil
}
