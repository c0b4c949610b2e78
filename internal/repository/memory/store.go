// Package memory keeps the review ledger and its collaborators in process.
// It backs local development and end-to-end tests. All methods are safe for
// concurrent use.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/repository"
	apperrors "github.com/utafrali/vingo-review/pkg/errors"
)

type order struct {
	ref   domain.OrderRef
	items map[string]struct{}
}

type itemUser struct {
	itemID, userID string
}

// Store implements every storage port of the review service.
type Store struct {
	mu      sync.RWMutex
	reviews map[string]domain.Review
	byPair  map[itemUser]string
	orders  []order
	ratings map[string]domain.ItemRating
	authors map[string]domain.Author
}

var (
	_ repository.ReviewRepository = (*Store)(nil)
	_ repository.OrderReader      = (*Store)(nil)
	_ repository.ItemRatingWriter = (*Store)(nil)
	_ repository.AuthorReader     = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		reviews: make(map[string]domain.Review),
		byPair:  make(map[itemUser]string),
		ratings: make(map[string]domain.ItemRating),
		authors: make(map[string]domain.Author),
	}
}

// AddItem registers a catalog item with an empty aggregate.
func (s *Store) AddItem(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ratings[itemID]; !ok {
		s.ratings[itemID] = domain.ItemRating{}
	}
}

// AddOrder records an order containing itemIDs.
func (s *Store) AddOrder(ref domain.OrderRef, itemIDs ...string) {
	items := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		items[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, order{ref: ref, items: items})
}

// AddAuthor registers a user's display fields.
func (s *Store) AddAuthor(a domain.Author) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authors[a.ID] = a
}

func (s *Store) Create(_ context.Context, review *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemUser{review.ItemID, review.UserID}
	if _, exists := s.byPair[key]; exists {
		return domain.ErrAlreadyReviewed
	}
	if review.ID == "" {
		review.ID = uuid.NewString()
	}

	s.reviews[review.ID] = cloneReview(*review)
	s.byPair[key] = review.ID
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rv, ok := s.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	out := cloneReview(rv)
	return &out, nil
}

func (s *Store) GetByItemAndUser(_ context.Context, itemID, userID string) (*domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPair[itemUser{itemID, userID}]
	if !ok {
		return nil, apperrors.NotFound("review", itemID+"/"+userID)
	}
	out := cloneReview(s.reviews[id])
	return &out, nil
}

func (s *Store) UpdateContent(_ context.Context, review *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rv, ok := s.reviews[review.ID]
	if !ok {
		return apperrors.NotFound("review", review.ID)
	}
	rv.Rating = review.Rating
	rv.Text = review.Text
	rv.UpdatedAt = review.UpdatedAt
	s.reviews[review.ID] = rv
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rv, ok := s.reviews[id]
	if !ok {
		return apperrors.NotFound("review", id)
	}
	delete(s.reviews, id)
	delete(s.byPair, itemUser{rv.ItemID, rv.UserID})
	return nil
}

func (s *Store) ListByItem(_ context.Context, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	s.mu.RLock()
	matched := make([]domain.Review, 0)
	for _, rv := range s.reviews {
		if rv.ItemID == filter.ItemID {
			matched = append(matched, cloneReview(rv))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, less(matched, filter.Sort))

	total := len(matched)
	start := filter.Offset()
	if start < 0 || start >= total {
		return []domain.Review{}, total, nil
	}
	end := start + filter.PerPage
	if filter.PerPage <= 0 || end < start || end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// less orders reviews the same way the SQL store does.
func less(rs []domain.Review, s domain.ReviewSort) func(i, j int) bool {
	newer := func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.After(rs[j].CreatedAt)
		}
		return rs[i].ID > rs[j].ID
	}

	switch s {
	case domain.SortOldest:
		return func(i, j int) bool { return newer(j, i) }
	case domain.SortHighest:
		return func(i, j int) bool {
			if rs[i].Rating != rs[j].Rating {
				return rs[i].Rating > rs[j].Rating
			}
			return newer(i, j)
		}
	case domain.SortLowest:
		return func(i, j int) bool {
			if rs[i].Rating != rs[j].Rating {
				return rs[i].Rating < rs[j].Rating
			}
			return newer(i, j)
		}
	default:
		return newer
	}
}

func (s *Store) RatingsByItem(_ context.Context, itemID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ratings := []int{}
	for _, rv := range s.reviews {
		if rv.ItemID == itemID {
			ratings = append(ratings, rv.Rating)
		}
	}
	return ratings, nil
}

func (s *Store) RatingCounts(_ context.Context, itemID string) (map[int]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int]int)
	for _, rv := range s.reviews {
		if rv.ItemID == itemID {
			counts[rv.Rating]++
		}
	}
	return counts, nil
}

func (s *Store) FindOrdersByUserAndItemStatus(_ context.Context, userID, itemID, status string) ([]domain.OrderRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := []domain.OrderRef{}
	for _, o := range s.orders {
		if o.ref.UserID != userID || o.ref.Status != status {
			continue
		}
		if _, ok := o.items[itemID]; ok {
			found = append(found, o.ref)
		}
	}
	return found, nil
}

// SetItemRating stores the aggregate. Unregistered items are created so that
// development setups need no catalog seed.
func (s *Store) SetItemRating(_ context.Context, itemID string, rating domain.ItemRating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[itemID] = rating
	return nil
}

func (s *Store) GetItemRating(_ context.Context, itemID string) (domain.ItemRating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rating, ok := s.ratings[itemID]
	if !ok {
		return domain.ItemRating{}, apperrors.NotFound("item", itemID)
	}
	return rating, nil
}

func (s *Store) GetAuthors(_ context.Context, userIDs []string) (map[string]domain.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	authors := make(map[string]domain.Author, len(userIDs))
	for _, id := range userIDs {
		if a, ok := s.authors[id]; ok {
			authors[id] = a
		}
	}
	return authors, nil
}

func cloneReview(r domain.Review) domain.Review {
	if r.Images != nil {
		r.Images = append([]string(nil), r.Images...)
	} else {
		r.Images = []string{}
	}
	r.Author = nil
	return r
}
