package postgres

import (
	"context"
	"fmt"

	"github.com/khoitriso/review-service/internal/domain"
	"github.com/khoitriso/review-service/pkg/database"
)

// EntitlementRepository implements entitlement lookups using PostgreSQL.
// Rows in item_entitlements are written by the order pipeline when a user
// acquires a course, book or learning path.
type EntitlementRepository struct {
	pool database.DBTX
}

// NewEntitlementRepository creates a new PostgreSQL-backed entitlement repository.
func NewEntitlementRepository(pool database.DBTX) *EntitlementRepository {
	return &EntitlementRepository{pool: pool}
}

// HasEntitlement reports whether the user has acquired the given item.
func (r *EntitlementRepository) HasEntitlement(ctx context.Context, userID string, itemType domain.ItemType, itemID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM item_entitlements
			WHERE user_id = $1 AND item_type = $2 AND item_id = $3
		)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, userID, int(itemType), itemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check entitlement: %w", err)
	}

	return exists, nil
}
