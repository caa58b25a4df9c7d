package client

import (
	"context"
	"errors"

	apperrors "github.com/khoitriso/review-service/pkg/errors"
)

// MarkSet records which reviews the user has already marked helpful.
// MarkStore is the file-backed implementation.
type MarkSet interface {
	Has(reviewID string) bool
	Add(reviewID string) error
}

// HelpfulVoter combines the API client with a local MarkSet so repeat
// votes are suppressed before they hit the network. The server still
// enforces one vote per user; a CONFLICT from it backfills the local store
// (e.g. after the user voted from another device).
type HelpfulVoter struct {
	client *Client
	store  MarkSet
}

// NewHelpfulVoter creates a voter for the client's authenticated user.
func NewHelpfulVoter(c *Client, store MarkSet) *HelpfulVoter {
	return &HelpfulVoter{client: c, store: store}
}

// Vote marks a review helpful. The returned bool is true when a vote was
// actually sent and counted; false means it was suppressed or already
// recorded. The count is only meaningful when the bool is true.
func (v *HelpfulVoter) Vote(ctx context.Context, reviewID string) (int, bool, error) {
	if v.store.Has(reviewID) {
		return 0, false, nil
	}

	count, err := v.client.MarkHelpful(ctx, reviewID)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			_ = v.store.Add(reviewID)
			return 0, false, nil
		}
		return 0, false, err
	}

	// The vote counted server-side; a store persistence failure only means
	// the next attempt makes a redundant request, so it is not surfaced.
	_ = v.store.Add(reviewID)

	return count, true, nil
}

// Voted reports whether the user has marked the review helpful, as far as
// this device knows.
func (v *HelpfulVoter) Voted(reviewID string) bool {
	return v.store.Has(reviewID)
}
