package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/repository"
	"github.com/utafrali/vingo-review/pkg/database"
)

const getAuthorsSQL = `
	SELECT id::text, full_name, COALESCE(avatar_url, '')
	FROM users
	WHERE id::text = ANY($1)`

// UserRepository reads public profile fields from the users table.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a read-only user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

var _ repository.AuthorReader = (*UserRepository)(nil)

func (r *UserRepository) GetAuthors(ctx context.Context, userIDs []string) (_ map[string]domain.Author, err error) {
	authors := make(map[string]domain.Author, len(userIDs))
	if len(userIDs) == 0 {
		return authors, nil
	}

	ctx, end := database.TraceQuery(ctx, "GetAuthors", getAuthorsSQL)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, getAuthorsSQL, userIDs)
	if err != nil {
		return nil, fmt.Errorf("query authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan author row: %w", err)
		}
		authors[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate author rows: %w", err)
	}
	return authors, nil
}
