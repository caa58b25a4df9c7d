package client

import (
	"context"
	"errors"
	"sync"
)

// ErrStaleResponse is returned by Refresh when the feed's parameters
// changed while the request was in flight and the response was discarded.
var ErrStaleResponse = errors.New("review feed response superseded")

// Feed tracks the listing state for one item's review feed: current page,
// sort and filter. Every parameter change bumps a generation counter, and
// a response is applied only if the feed is still on the generation that
// requested it, so a slow response can never overwrite a newer one.
//
// Feed is safe for concurrent use.
type Feed struct {
	client   *Client
	itemType ItemType
	itemID   int64

	mu         sync.Mutex
	page       int
	perPage    int
	sortBy     string
	sortOrder  string
	rating     *int
	generation uint64
	current    *ReviewPage
	editingID  string
}

// NewFeed creates a feed for one item, starting at page 1 sorted by newest.
func NewFeed(c *Client, itemType ItemType, itemID int64) *Feed {
	return &Feed{
		client:    c,
		itemType:  itemType,
		itemID:    itemID,
		page:      1,
		perPage:   20,
		sortBy:    "createdAt",
		sortOrder: "desc",
	}
}

// SetSort changes the sort and resets to the first page.
func (f *Feed) SetSort(sortBy, sortOrder string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sortBy = sortBy
	f.sortOrder = sortOrder
	f.page = 1
	f.generation++
}

// SetRatingFilter shows only reviews with the given star rating. A nil
// rating clears the filter. Resets to the first page.
func (f *Feed) SetRatingFilter(rating *int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rating = rating
	f.page = 1
	f.generation++
}

// SetPage moves to the given page.
func (f *Feed) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.page = page
	f.generation++
}

// SetPerPage changes the page size and resets to the first page.
func (f *Feed) SetPerPage(perPage int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perPage = perPage
	f.page = 1
	f.generation++
}

// StartEditing marks a review as the one being edited.
func (f *Feed) StartEditing(reviewID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editingID = reviewID
}

// StopEditing clears the editing state.
func (f *Feed) StopEditing() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editingID = ""
}

// Editing returns the ID of the review being edited, or "" if none.
func (f *Feed) Editing() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editingID
}

// Current returns the most recently applied page, or nil before the first
// successful Refresh.
func (f *Feed) Current() *ReviewPage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Refresh fetches the page for the feed's current parameters. If the
// parameters change while the request is in flight the response is
// discarded and ErrStaleResponse is returned; the caller should simply
// Refresh again (or rely on whichever concurrent Refresh is current).
func (f *Feed) Refresh(ctx context.Context) (*ReviewPage, error) {
	f.mu.Lock()
	gen := f.generation
	opts := ListOptions{
		Page:      f.page,
		PerPage:   f.perPage,
		SortBy:    f.sortBy,
		SortOrder: f.sortOrder,
		Rating:    f.rating,
	}
	f.mu.Unlock()

	page, err := f.client.ListReviews(ctx, f.itemType, f.itemID, opts)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation != gen {
		return nil, ErrStaleResponse
	}
	f.current = page
	return page, nil
}

// Create submits a review for the feed's item. The feed's generation is
// bumped so any in-flight page no longer missing the new review is
// discarded; Refresh afterwards to see it listed.
func (f *Feed) Create(ctx context.Context, draft ReviewDraft) (*Review, error) {
	review, err := f.client.CreateReview(ctx, f.itemType, f.itemID, draft)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.generation++
	f.mu.Unlock()
	return review, nil
}

// Update edits a review and bumps the generation; Refresh to see the new
// ordering (an edit can move the review under rating sorts).
func (f *Feed) Update(ctx context.Context, reviewID string, draft ReviewDraft) (*Review, error) {
	review, err := f.client.UpdateReview(ctx, reviewID, draft)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.generation++
	f.mu.Unlock()
	return review, nil
}

// Delete removes a review and excises it from the current page in place,
// so the UI updates without a round trip. Deleting the review currently
// being edited also clears the editing state.
func (f *Feed) Delete(ctx context.Context, reviewID string) error {
	if err := f.client.DeleteReview(ctx, reviewID); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	if f.editingID == reviewID {
		f.editingID = ""
	}
	if f.current == nil {
		return nil
	}
	for i, rv := range f.current.Reviews {
		if rv.ID == reviewID {
			f.current.Reviews = append(f.current.Reviews[:i], f.current.Reviews[i+1:]...)
			f.current.TotalCount--
			break
		}
	}
	return nil
}

// MarkHelpful votes a review helpful and updates only that review's count
// in the current page. No reload: helpful counts don't reorder the feed
// until the user asks for a helpfulCount sort.
func (f *Feed) MarkHelpful(ctx context.Context, reviewID string) (int, error) {
	count, err := f.client.MarkHelpful(ctx, reviewID)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		for i := range f.current.Reviews {
			if f.current.Reviews[i].ID == reviewID {
				f.current.Reviews[i].HelpfulCount = count
				break
			}
		}
	}
	return count, nil
}

// MyReview fetches the authenticated user's review for the feed's item.
func (f *Feed) MyReview(ctx context.Context) (*Review, error) {
	return f.client.GetMyReview(ctx, f.itemType, f.itemID)
}
