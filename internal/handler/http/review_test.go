package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/khoitriso/review-service/internal/cache"
	"github.com/khoitriso/review-service/internal/domain"
	"github.com/khoitriso/review-service/internal/repository"
	"github.com/khoitriso/review-service/internal/service"
	apperrors "github.com/khoitriso/review-service/pkg/errors"
	"github.com/khoitriso/review-service/pkg/httputil"
	"github.com/khoitriso/review-service/pkg/middleware"
)

// =============================================================================
// Mock ReviewRepository
// =============================================================================

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepo) GetByUserAndItem(ctx context.Context, userID string, itemType domain.ItemType, itemID int64) (*domain.Review, error) {
	args := m.Called(ctx, userID, itemType, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepo) List(ctx context.Context, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepo) Update(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepo) GetSummary(ctx context.Context, itemType domain.ItemType, itemID int64) (*domain.ReviewSummary, error) {
	args := m.Called(ctx, itemType, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewSummary), args.Error(1)
}

func (m *mockReviewRepo) MarkHelpful(ctx context.Context, reviewID, userID string) (int, error) {
	args := m.Called(ctx, reviewID, userID)
	return args.Int(0), args.Error(1)
}

// =============================================================================
// Stub collaborators
// =============================================================================

type stubEntitlements struct {
	entitled bool
}

func (s *stubEntitlements) HasEntitlement(context.Context, string, domain.ItemType, int64) (bool, error) {
	return s.entitled, nil
}

type noopPublisher struct{}

func (noopPublisher) PublishReviewCreated(context.Context, *domain.Review) error { return nil }
func (noopPublisher) PublishReviewUpdated(context.Context, *domain.Review) error { return nil }
func (noopPublisher) PublishReviewDeleted(context.Context, *domain.Review) error { return nil }
func (noopPublisher) PublishHelpfulVoted(context.Context, string, string, int) error {
	return nil
}

type noopCache struct{}

func (noopCache) Get(context.Context, domain.ItemType, int64) (*domain.ReviewSummary, error) {
	return nil, cache.ErrMiss
}
func (noopCache) Set(context.Context, *domain.ReviewSummary) error         { return nil }
func (noopCache) Invalidate(context.Context, domain.ItemType, int64) error { return nil }

// =============================================================================
// Test helpers
// =============================================================================

func reviewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func reviewTestRouter(repo *mockReviewRepo, entitled bool) http.Handler {
	svc := service.NewReviewService(repo, &stubEntitlements{entitled: entitled}, noopPublisher{}, noopCache{}, reviewTestLogger())
	handler := NewReviewHandler(svc, reviewTestLogger())

	r := chi.NewRouter()
	r.Use(middleware.Identity)

	r.Route("/api/v1/items/{itemType}/{itemId}/reviews", func(r chi.Router) {
		r.Get("/", handler.ListReviews)
		r.Get("/summary", handler.GetSummary)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Get("/me", handler.GetMyReview)
			r.Post("/", handler.CreateReview)
		})
	})
	r.Route("/api/v1/reviews/{reviewId}", func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Put("/", handler.UpdateReview)
		r.Delete("/", handler.DeleteReview)
		r.Post("/helpful", handler.MarkHelpful)
	})

	return r
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func sampleStoredReview() *domain.Review {
	now := time.Now().UTC()
	return &domain.Review{
		ID:                 "550e8400-e29b-41d4-a716-446655440001",
		UserID:             "user-456",
		ItemType:           domain.ItemTypeCourse,
		ItemID:             42,
		Rating:             5,
		Title:              "Tuyệt vời",
		Content:            "Khóa học rất hay và bổ ích, giảng viên nhiệt tình.",
		IsVerifiedPurchase: true,
		HelpfulCount:       3,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// =============================================================================
// POST /api/v1/items/{itemType}/{itemId}/reviews - CreateReview
// =============================================================================

func TestCreateReview_Created(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, true)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Review")).Return(nil)

	body, _ := json.Marshal(ReviewRequest{
		Rating:  5,
		Title:   "Tuyệt vời",
		Content: "Khóa học rất hay và bổ ích, giảng viên nhiệt tình.",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/course/42/reviews", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-456")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	require.NotNil(t, resp.Data)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "course", data["item_type"])
	assert.Equal(t, float64(42), data["item_id"])
	assert.Equal(t, true, data["is_verified_purchase"])
	repo.AssertExpectations(t)
}

func TestCreateReview_NumericItemTypeInPath(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	repo.On("Create", mock.Anything, mock.MatchedBy(func(rv *domain.Review) bool {
		return rv.ItemType == domain.ItemTypeCourse && rv.ItemID == 42
	})).Return(nil)

	body, _ := json.Marshal(ReviewRequest{Rating: 4, Content: "Solid introduction to the topic overall."})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/1/42/reviews", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-456")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}

func TestCreateReview_MissingUser(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	body, _ := json.Marshal(ReviewRequest{Rating: 5, Content: "This should not get through at all."})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/course/42/reviews", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReview_UnknownFieldRejected(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/course/42/reviews",
		strings.NewReader(`{"rating":5,"content":"Valid content but an extra field.","is_verified_purchase":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-456")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReview_BadItemType(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	body, _ := json.Marshal(ReviewRequest{Rating: 5, Content: "Content long enough to validate."})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/webinar/42/reviews", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-456")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReview_Duplicate(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, true)

	repo.On("Create", mock.Anything, mock.Anything).Return(apperrors.ErrAlreadyExists)

	body, _ := json.Marshal(ReviewRequest{Rating: 5, Content: "Trying to review the same item twice."})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/course/42/reviews", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-456")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_EXISTS", resp.Error.Code)
}

// =============================================================================
// GET /api/v1/items/{itemType}/{itemId}/reviews - ListReviews
// =============================================================================

func TestListReviews_OK(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	stored := sampleStoredReview()
	repo.On("List", mock.Anything, repository.ReviewFilter{
		ItemType:  domain.ItemTypeCourse,
		ItemID:    42,
		SortBy:    "helpfulCount",
		SortOrder: "desc",
		Limit:     10,
		Offset:    10,
	}).Return([]domain.Review{*stored}, 25, nil)
	repo.On("GetSummary", mock.Anything, domain.ItemTypeCourse, int64(42)).
		Return(domain.NewReviewSummary(domain.ItemTypeCourse, 42, 4.5, map[int]int{5: 15, 4: 10}), nil)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/items/course/42/reviews?page=2&per_page=10&sort_by=helpfulCount&sort_order=desc", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, float64(25), body["total_count"])
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(3), body["total_pages"])
	require.NotNil(t, body["summary"])
	repo.AssertExpectations(t)
}

func TestListReviews_RatingFilter(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	repo.On("List", mock.Anything, mock.MatchedBy(func(f repository.ReviewFilter) bool {
		return f.Rating != nil && *f.Rating == 5
	})).Return([]domain.Review{}, 0, nil)
	repo.On("GetSummary", mock.Anything, domain.ItemTypeBook, int64(7)).
		Return(domain.NewReviewSummary(domain.ItemTypeBook, 7, 0, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/book/7/reviews?rating=5", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

// =============================================================================
// GET /api/v1/items/{itemType}/{itemId}/reviews/summary - GetSummary
// =============================================================================

func TestGetSummary_OK(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	repo.On("GetSummary", mock.Anything, domain.ItemTypeLearningPath, int64(3)).
		Return(domain.NewReviewSummary(domain.ItemTypeLearningPath, 3, 4.0, map[int]int{4: 2}), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/learning_path/3/reviews/summary", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Data)

	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["total_reviews"])
	assert.Len(t, data["distribution"], 5)
}

// =============================================================================
// GET /api/v1/items/{itemType}/{itemId}/reviews/me - GetMyReview
// =============================================================================

func TestGetMyReview_OK(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	stored := sampleStoredReview()
	repo.On("GetByUserAndItem", mock.Anything, "user-456", domain.ItemTypeCourse, int64(42)).
		Return(stored, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/course/42/reviews/me", nil)
	req.Header.Set("X-User-ID", "user-456")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, stored.ID, data["id"])
}

func TestGetMyReview_NoneYet(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	repo.On("GetByUserAndItem", mock.Anything, "user-456", domain.ItemTypeCourse, int64(42)).
		Return(nil, apperrors.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/course/42/reviews/me", nil)
	req.Header.Set("X-User-ID", "user-456")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// PUT /api/v1/reviews/{reviewId} - UpdateReview
// =============================================================================

func TestUpdateReview_OK(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	stored := sampleStoredReview()
	repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Review")).Return(nil)

	body, _ := json.Marshal(ReviewRequest{Rating: 3, Content: "Revised my opinion after the last module."})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/reviews/"+stored.ID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-456")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestUpdateReview_NotOwner(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	stored := sampleStoredReview()
	repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)

	body, _ := json.Marshal(ReviewRequest{Rating: 1, Content: "Someone else tampering with a review."})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/reviews/"+stored.ID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "intruder-9")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateReview_BadUUID(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	body, _ := json.Marshal(ReviewRequest{Rating: 3, Content: "Valid body but the path id is junk."})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/reviews/not-a-uuid", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-456")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// DELETE /api/v1/reviews/{reviewId} - DeleteReview
// =============================================================================

func TestDeleteReview_OK(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	stored := sampleStoredReview()
	repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
	repo.On("Delete", mock.Anything, stored.ID).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/"+stored.ID, nil)
	req.Header.Set("X-User-ID", "user-456")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	repo.AssertExpectations(t)
}

// =============================================================================
// POST /api/v1/reviews/{reviewId}/helpful - MarkHelpful
// =============================================================================

func TestMarkHelpful_OK(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	stored := sampleStoredReview()
	repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
	repo.On("MarkHelpful", mock.Anything, stored.ID, "voter-2").Return(4, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/"+stored.ID+"/helpful", nil)
	req.Header.Set("X-User-ID", "voter-2")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(4), data["helpful_count"])
}

func TestMarkHelpful_RepeatVote(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	stored := sampleStoredReview()
	repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
	repo.On("MarkHelpful", mock.Anything, stored.ID, "voter-2").Return(0, apperrors.ErrConflict)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/"+stored.ID+"/helpful", nil)
	req.Header.Set("X-User-ID", "voter-2")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
}

func TestMarkHelpful_SelfVote(t *testing.T) {
	repo := new(mockReviewRepo)
	router := reviewTestRouter(repo, false)

	stored := sampleStoredReview()
	repo.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/"+stored.ID+"/helpful", nil)
	req.Header.Set("X-User-ID", stored.UserID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "MarkHelpful", mock.Anything, mock.Anything, mock.Anything)
}
