package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoitriso/review-service/internal/domain"
	"github.com/khoitriso/review-service/internal/repository"
	"github.com/khoitriso/review-service/pkg/database"
	apperrors "github.com/khoitriso/review-service/pkg/errors"
)

func newReviewTestFixture(t *testing.T) (*ReviewRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewReviewRepository(mock)
	return repo, mock
}

func sampleReview() *domain.Review {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Review{
		ID:                 "5f29b1a0-7c4d-4b9a-9e1f-2d8c3a6b4e10",
		UserID:             "u-1001",
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

func reviewColumnNames() []string {
	return []string{
		"id", "user_id", "item_type", "item_id", "rating", "title", "content",
		"is_verified_purchase", "helpful_count", "created_at", "updated_at",
	}
}

func reviewRow(rv *domain.Review) *pgxmock.Rows {
	return pgxmock.NewRows(reviewColumnNames()).AddRow(
		rv.ID, rv.UserID, int(rv.ItemType), rv.ItemID, rv.Rating, rv.Title, rv.Content,
		rv.IsVerifiedPurchase, rv.HelpfulCount, rv.CreatedAt, rv.UpdatedAt,
	)
}

func TestReviewRepository_Create_Success(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(
			rv.ID, rv.UserID, int(rv.ItemType), rv.ItemID, rv.Rating, rv.Title, rv.Content,
			rv.IsVerifiedPurchase, rv.HelpfulCount, rv.CreatedAt, rv.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), rv)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_DuplicateReview(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(
			rv.ID, rv.UserID, int(rv.ItemType), rv.ItemID, rv.Rating, rv.Title, rv.Content,
			rv.IsVerifiedPurchase, rv.HelpfulCount, rv.CreatedAt, rv.UpdatedAt,
		).
		WillReturnError(fmt.Errorf("ERROR: duplicate key value violates unique constraint \"reviews_one_per_user_item\" (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), rv)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists), "expected ErrAlreadyExists, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByID_Success(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectQuery("SELECT .+ FROM reviews WHERE id =").
		WithArgs(rv.ID).
		WillReturnRows(reviewRow(rv))

	got, err := repo.GetByID(context.Background(), rv.ID)
	require.NoError(t, err)
	assert.Equal(t, rv, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM reviews WHERE id =").
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing-id")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByUserAndItem_Success(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectQuery("SELECT .+ FROM reviews WHERE user_id = .+ AND item_type = .+ AND item_id =").
		WithArgs(rv.UserID, int(rv.ItemType), rv.ItemID).
		WillReturnRows(reviewRow(rv))

	got, err := repo.GetByUserAndItem(context.Background(), rv.UserID, rv.ItemType, rv.ItemID)
	require.NoError(t, err)
	assert.Equal(t, rv.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_List_DefaultSort(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()
	rows := pgxmock.NewRows(append(reviewColumnNames(), "total_count")).AddRow(
		rv.ID, rv.UserID, int(rv.ItemType), rv.ItemID, rv.Rating, rv.Title, rv.Content,
		rv.IsVerifiedPurchase, rv.HelpfulCount, rv.CreatedAt, rv.UpdatedAt, 37,
	)

	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs(int(domain.ItemTypeCourse), int64(42), 20, 0).
		WillReturnRows(rows)

	reviews, total, err := repo.List(context.Background(), repository.ReviewFilter{
		ItemType: domain.ItemTypeCourse,
		ItemID:   42,
		Limit:    20,
	})
	require.NoError(t, err)
	assert.Equal(t, 37, total)
	require.Len(t, reviews, 1)
	assert.Equal(t, rv.ID, reviews[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_List_RatingFilterAndSort(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rating := 5
	mock.ExpectQuery("ORDER BY helpful_count ASC").
		WithArgs(int(domain.ItemTypeBook), int64(7), rating, 10, 20).
		WillReturnRows(pgxmock.NewRows(append(reviewColumnNames(), "total_count")))

	reviews, total, err := repo.List(context.Background(), repository.ReviewFilter{
		ItemType:  domain.ItemTypeBook,
		ItemID:    7,
		Rating:    &rating,
		SortBy:    repository.SortByHelpfulCount,
		SortOrder: "asc",
		Limit:     10,
		Offset:    20,
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_List_UnknownSortFallsBack(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs(int(domain.ItemTypeCourse), int64(42), 20, 0).
		WillReturnRows(pgxmock.NewRows(append(reviewColumnNames(), "total_count")))

	_, _, err := repo.List(context.Background(), repository.ReviewFilter{
		ItemType: domain.ItemTypeCourse,
		ItemID:   42,
		SortBy:   "helpful_count; DROP TABLE reviews",
		Limit:    20,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Update_Success(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectExec("UPDATE reviews").
		WithArgs(rv.Rating, rv.Title, rv.Content, rv.UpdatedAt, rv.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Update(context.Background(), rv)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Update_NotFound(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectExec("UPDATE reviews").
		WithArgs(rv.Rating, rv.Title, rv.Content, rv.UpdatedAt, rv.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), rv)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Delete_Success(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM reviews").
		WithArgs("rev-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.Delete(context.Background(), "rev-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetSummary(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"rating", "count"}).
		AddRow(5, 10).
		AddRow(4, 5).
		AddRow(1, 1)

	mock.ExpectQuery("GROUP BY rating").
		WithArgs(int(domain.ItemTypeCourse), int64(42)).
		WillReturnRows(rows)

	summary, err := repo.GetSummary(context.Background(), domain.ItemTypeCourse, 42)
	require.NoError(t, err)

	assert.Equal(t, 16, summary.TotalReviews)
	assert.InDelta(t, 4.4, summary.AverageRating, 0.001) // (50+20+1)/16 rounded
	assert.Equal(t, 5, summary.Distribution[0].Rating)
	assert.Equal(t, float64(63), summary.Distribution[0].Percent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetSummary_NoReviews(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("GROUP BY rating").
		WithArgs(int(domain.ItemTypeBook), int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"rating", "count"}))

	summary, err := repo.GetSummary(context.Background(), domain.ItemTypeBook, 9)
	require.NoError(t, err)

	assert.Zero(t, summary.TotalReviews)
	assert.Zero(t, summary.AverageRating)
	for _, entry := range summary.Distribution {
		assert.Zero(t, entry.Percent)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_MarkHelpful_Success(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO review_helpful_votes").
		WithArgs("rev-1", "u-2002", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("UPDATE reviews SET helpful_count = helpful_count").
		WithArgs("rev-1").
		WillReturnRows(pgxmock.NewRows([]string{"helpful_count"}).AddRow(4))
	mock.ExpectCommit()

	count, err := repo.MarkHelpful(context.Background(), "rev-1", "u-2002")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_MarkHelpful_AlreadyVoted(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO review_helpful_votes").
		WithArgs("rev-1", "u-2002", pgxmock.AnyArg()).
		WillReturnError(fmt.Errorf("ERROR: duplicate key value violates unique constraint \"review_helpful_votes_pkey\" (SQLSTATE 23505)"))
	mock.ExpectRollback()

	_, err := repo.MarkHelpful(context.Background(), "rev-1", "u-2002")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_MarkHelpful_ReviewGone(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO review_helpful_votes").
		WithArgs("rev-gone", "u-2002", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("UPDATE reviews SET helpful_count = helpful_count").
		WithArgs("rev-gone").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.MarkHelpful(context.Background(), "rev-gone", "u-2002")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntitlementRepository_HasEntitlement(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewEntitlementRepository(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("u-1001", int(domain.ItemTypeCourse), int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasEntitlement(context.Background(), "u-1001", domain.ItemTypeCourse, 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
