package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ItemType identifies the kind of learning item a review is attached to.
type ItemType int

const (
	ItemTypeCourse       ItemType = 1
	ItemTypeBook         ItemType = 2
	ItemTypeLearningPath ItemType = 3
)

var itemTypeNames = map[ItemType]string{
	ItemTypeCourse:       "course",
	ItemTypeBook:         "book",
	ItemTypeLearningPath: "learning_path",
}

// ParseItemType accepts either the numeric form ("1") or the name form
// ("course") used in URLs and payloads.
func ParseItemType(s string) (ItemType, error) {
	if n, err := strconv.Atoi(s); err == nil {
		it := ItemType(n)
		if _, ok := itemTypeNames[it]; ok {
			return it, nil
		}
		return 0, fmt.Errorf("unknown item type %d", n)
	}

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "course":
		return ItemTypeCourse, nil
	case "book":
		return ItemTypeBook, nil
	case "learning_path", "learningpath", "learning-path":
		return ItemTypeLearningPath, nil
	}
	return 0, fmt.Errorf("unknown item type %q", s)
}

// String returns the canonical name of the item type.
func (t ItemType) String() string {
	if name, ok := itemTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("item_type(%d)", int(t))
}

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	_, ok := itemTypeNames[t]
	return ok
}

// MarshalJSON renders the item type as its name.
func (t ItemType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts both the name and the numeric form.
func (t *ItemType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, perr := ParseItemType(s)
		if perr != nil {
			return perr
		}
		*t = parsed
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item type must be a string or number")
	}
	parsed, err := ParseItemType(strconv.Itoa(n))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Review is a user's rating and written feedback for a learning item.
type Review struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	ItemType           ItemType  `json:"item_type"`
	ItemID             int64     `json:"item_id"`
	Rating             int       `json:"rating"`
	Title              string    `json:"title,omitempty"`
	Content            string    `json:"content"`
	IsVerifiedPurchase bool      `json:"is_verified_purchase"`
	HelpfulCount       int       `json:"helpful_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ReviewSummary aggregates ratings for a single learning item. Distribution
// always carries all five buckets, including empty ones.
type ReviewSummary struct {
	ItemType      ItemType             `json:"item_type"`
	ItemID        int64                `json:"item_id"`
	AverageRating float64              `json:"average_rating"`
	TotalReviews  int                  `json:"total_reviews"`
	Distribution  [5]DistributionEntry `json:"distribution"`
}

// DistributionEntry is one star bucket of a rating distribution.
type DistributionEntry struct {
	Rating  int     `json:"rating"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// NewReviewSummary builds a summary from per-star counts, filling in
// percentages rounded to the nearest whole percent. counts maps rating
// (1..5) to the number of reviews with that rating; missing ratings become
// zero buckets. With no reviews every percentage is zero.
func NewReviewSummary(itemType ItemType, itemID int64, average float64, counts map[int]int) *ReviewSummary {
	summary := &ReviewSummary{
		ItemType:      itemType,
		ItemID:        itemID,
		AverageRating: math.Round(average*10) / 10,
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	summary.TotalReviews = total

	// Buckets run 5 stars down to 1, matching how they are displayed.
	for i := 0; i < 5; i++ {
		rating := 5 - i
		entry := DistributionEntry{Rating: rating, Count: counts[rating]}
		if total > 0 {
			entry.Percent = math.Round(float64(entry.Count) / float64(total) * 100)
		}
		summary.Distribution[i] = entry
	}

	return summary
}

// StarFill describes how the nth star (1-based) should render for a given
// average rating: 1 for a full star, 0.5 for a half star, 0 for empty.
// A fractional remainder of at least 0.5 earns a half star.
func StarFill(average float64, position int) float64 {
	if average >= float64(position) {
		return 1
	}
	if average >= float64(position)-0.5 {
		return 0.5
	}
	return 0
}

// TimeAgo renders a timestamp as a coarse relative duration for display.
func TimeAgo(t time.Time, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		return fmt.Sprintf("%d minute%s ago", m, plural(m))
	case d < 24*time.Hour:
		h := int(d.Hours())
		return fmt.Sprintf("%d hour%s ago", h, plural(h))
	case d < 30*24*time.Hour:
		days := int(d.Hours() / 24)
		return fmt.Sprintf("%d day%s ago", days, plural(days))
	case d < 365*24*time.Hour:
		months := int(d.Hours() / 24 / 30)
		return fmt.Sprintf("%d month%s ago", months, plural(months))
	default:
		years := int(d.Hours() / 24 / 365)
		return fmt.Sprintf("%d year%s ago", years, plural(years))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
