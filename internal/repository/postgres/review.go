package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/khoitriso/review-service/internal/domain"
	"github.com/khoitriso/review-service/internal/repository"
	"github.com/khoitriso/review-service/pkg/database"
	apperrors "github.com/khoitriso/review-service/pkg/errors"
)

// Column orderings accepted by List. Keys are the API-level sort names;
// values are trusted SQL fragments.
var sortColumns = map[string]string{
	repository.SortByCreatedAt:    "created_at",
	repository.SortByRating:       "rating",
	repository.SortByHelpfulCount: "helpful_count",
}

// ReviewRepository implements review persistence using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

const reviewColumns = `id, user_id, item_type, item_id, rating, title, content, is_verified_purchase, helpful_count, created_at, updated_at`

// Create inserts a new review. The unique constraint on
// (user_id, item_type, item_id) enforces one review per user per item.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	ctx, end := database.TraceQuery(ctx, "reviews.create", "INSERT INTO reviews")

	query := `
		INSERT INTO reviews (id, user_id, item_type, item_id, rating, title, content, is_verified_purchase, helpful_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		review.ID,
		review.UserID,
		int(review.ItemType),
		review.ItemID,
		review.Rating,
		review.Title,
		review.Content,
		review.IsVerifiedPurchase,
		review.HelpfulCount,
		review.CreatedAt,
		review.UpdatedAt,
	)
	end(err)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrAlreadyExists
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its identifier.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	return r.scanReview(ctx, query, id)
}

// GetByUserAndItem retrieves the review a user wrote for a specific item.
func (r *ReviewRepository) GetByUserAndItem(ctx context.Context, userID string, itemType domain.ItemType, itemID int64) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE user_id = $1 AND item_type = $2 AND item_id = $3`
	return r.scanReview(ctx, query, userID, int(itemType), itemID)
}

// List returns paginated reviews for an item along with the total count of
// matches. Sort fields outside the whitelist fall back to created_at.
func (r *ReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	args := []any{int(filter.ItemType), filter.ItemID}
	where := "WHERE item_type = $1 AND item_id = $2"
	if filter.Rating != nil {
		args = append(args, *filter.Rating)
		where += fmt.Sprintf(" AND rating = $%d", len(args))
	}
	args = append(args, limit, filter.Offset)

	query := fmt.Sprintf(`
		SELECT `+reviewColumns+`,
		       count(*) OVER() AS total_count
		FROM reviews
		%s
		ORDER BY %s %s, id DESC
		LIMIT $%d OFFSET $%d`,
		where, column, direction, len(args)-1, len(args))

	ctx, end := database.TraceQuery(ctx, "reviews.list", "SELECT FROM reviews")
	rows, err := r.pool.Query(ctx, query, args...)
	end(err)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)

	for rows.Next() {
		var rv domain.Review
		var itemType int

		if err := rows.Scan(
			&rv.ID,
			&rv.UserID,
			&itemType,
			&rv.ItemID,
			&rv.Rating,
			&rv.Title,
			&rv.Content,
			&rv.IsVerifiedPurchase,
			&rv.HelpfulCount,
			&rv.CreatedAt,
			&rv.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}

		rv.ItemType = domain.ItemType(itemType)
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, totalCount, nil
}

// Update modifies the mutable fields of a review.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	query := `
		UPDATE reviews
		SET rating = $1, title = $2, content = $3, updated_at = $4
		WHERE id = $5`

	ctx, end := database.TraceQuery(ctx, "reviews.update", "UPDATE reviews")
	tag, err := r.pool.Exec(ctx, query,
		review.Rating,
		review.Title,
		review.Content,
		review.UpdatedAt,
		review.ID,
	)
	end(err)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a review. Helpful votes go with it via ON DELETE CASCADE.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	ctx, end := database.TraceQuery(ctx, "reviews.delete", "DELETE FROM reviews")
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	end(err)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// GetSummary computes the average rating and per-star counts for an item.
func (r *ReviewRepository) GetSummary(ctx context.Context, itemType domain.ItemType, itemID int64) (*domain.ReviewSummary, error) {
	query := `
		SELECT rating, COUNT(*)
		FROM reviews
		WHERE item_type = $1 AND item_id = $2
		GROUP BY rating`

	ctx, end := database.TraceQuery(ctx, "reviews.summary", "SELECT FROM reviews GROUP BY rating")
	rows, err := r.pool.Query(ctx, query, int(itemType), itemID)
	end(err)
	if err != nil {
		return nil, fmt.Errorf("get review summary: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int, 5)
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		counts[rating] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}

	total := 0
	sum := 0
	for rating, count := range counts {
		total += count
		sum += rating * count
	}

	average := 0.0
	if total > 0 {
		average = float64(sum) / float64(total)
	}

	return domain.NewReviewSummary(itemType, itemID, average, counts), nil
}

// MarkHelpful records a helpful vote and bumps the denormalized counter in
// one transaction. The unique constraint on (review_id, user_id) makes the
// vote idempotent-rejecting: a second vote from the same user fails with
// ErrConflict and leaves the count untouched.
func (r *ReviewRepository) MarkHelpful(ctx context.Context, reviewID, userID string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin helpful vote tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO review_helpful_votes (review_id, user_id, created_at) VALUES ($1, $2, $3)`,
		reviewID, userID, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperrors.ErrConflict
		}
		return 0, fmt.Errorf("insert helpful vote: %w", err)
	}

	var count int
	err = tx.QueryRow(ctx,
		`UPDATE reviews SET helpful_count = helpful_count + 1 WHERE id = $1 RETURNING helpful_count`,
		reviewID,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		return 0, fmt.Errorf("increment helpful count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit helpful vote tx: %w", err)
	}

	return count, nil
}

// scanReview executes a query expected to return a single review row.
func (r *ReviewRepository) scanReview(ctx context.Context, query string, args ...any) (*domain.Review, error) {
	var rv domain.Review
	var itemType int

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&rv.ID,
		&rv.UserID,
		&itemType,
		&rv.ItemID,
		&rv.Rating,
		&rv.Title,
		&rv.Content,
		&rv.IsVerifiedPurchase,
		&rv.HelpfulCount,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	rv.ItemType = domain.ItemType(itemType)
	return &rv, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
