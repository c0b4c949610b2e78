package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/vingo-review/internal/domain"
	"github.com/utafrali/vingo-review/internal/repository"
)

// --- Mock Repositories ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) GetByItemAndUser(ctx context.Context, itemID, userID string) (*domain.Review, error) {
	args := m.Called(ctx, itemID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) UpdateContent(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) ListByItem(ctx context.Context, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) RatingsByItem(ctx context.Context, itemID string) ([]int, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).([]int), args.Error(1)
}

func (m *mockReviewRepository) RatingCounts(ctx context.Context, itemID string) (map[int]int, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(map[int]int), args.Error(1)
}

type mockOrderReader struct {
	mock.Mock
}

func (m *mockOrderReader) FindOrdersByUserAndItemStatus(ctx context.Context, userID, itemID, status string) ([]domain.OrderRef, error) {
	args := m.Called(ctx, userID, itemID, status)
	return args.Get(0).([]domain.OrderRef), args.Error(1)
}

type mockItemRatingWriter struct {
	mock.Mock
}

func (m *mockItemRatingWriter) SetItemRating(ctx context.Context, itemID string, rating domain.ItemRating) error {
	args := m.Called(ctx, itemID, rating)
	return args.Error(0)
}

func (m *mockItemRatingWriter) GetItemRating(ctx context.Context, itemID string) (domain.ItemRating, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(domain.ItemRating), args.Error(1)
}

type mockAuthorReader struct {
	mock.Mock
}

func (m *mockAuthorReader) GetAuthors(ctx context.Context, userIDs []string) (map[string]domain.Author, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Author), args.Error(1)
}

type mockPageCache struct {
	mock.Mock
}

func (m *mockPageCache) GetPage(ctx context.Context, filter repository.ReviewFilter) (*domain.ReviewPage, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).(*domain.ReviewPage), args.Get(1).(int64), args.Error(2)
}

func (m *mockPageCache) SetPage(ctx context.Context, filter repository.ReviewFilter, version int64, page *domain.ReviewPage) error {
	args := m.Called(ctx, filter, version, page)
	return args.Error(0)
}

func (m *mockPageCache) Invalidate(ctx context.Context, itemID string) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockPublisher) PublishReviewUpdated(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockPublisher) PublishReviewDeleted(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockPublisher) PublishItemRatingUpdated(ctx context.Context, itemID string, rating domain.ItemRating) error {
	return m.Called(ctx, itemID, rating).Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixture struct {
	reviews *mockReviewRepository
	orders  *mockOrderReader
	items   *mockItemRatingWriter
	authors *mockAuthorReader
	cache   *mockPageCache
	events  *mockPublisher
}

func newFixture() *fixture {
	return &fixture{
		reviews: new(mockReviewRepository),
		orders:  new(mockOrderReader),
		items:   new(mockItemRatingWriter),
		authors: new(mockAuthorReader),
		cache:   new(mockPageCache),
		events:  new(mockPublisher),
	}
}

func (f *fixture) reviewService() *ReviewService {
	logger := newTestLogger()
	elig := NewEligibilityChecker(f.orders, f.reviews)
	agg := NewRatingAggregator(f.reviews, f.items, f.events, logger)
	return NewReviewService(f.reviews, elig, agg, f.authors, f.cache, f.events, logger)
}

func (f *fixture) queryService() *ReviewQueryService {
	return NewReviewQueryService(f.reviews, f.authors, f.cache, newTestLogger())
}

func (f *fixture) assertExpectations(t mock.TestingT) {
	f.reviews.AssertExpectations(t)
	f.orders.AssertExpectations(t)
	f.items.AssertExpectations(t)
	f.authors.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.events.AssertExpectations(t)
}
