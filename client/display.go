package client

import (
	"time"

	"github.com/khoitriso/review-service/internal/domain"
)

// ReviewDisplay is a review decorated with display-ready fields.
type ReviewDisplay struct {
	Review
	PostedAgo string `json:"posted_ago"`
	IsOwner   bool   `json:"is_owner"`
}

// SummaryDisplay is a rating summary with per-position star fill values
// (1 = full, 0.5 = half, 0 = empty) for rendering the average as stars.
type SummaryDisplay struct {
	ReviewSummary
	Stars [5]float64 `json:"stars"`
}

// DisplayReview decorates a review with a relative timestamp and an
// ownership flag for the client's authenticated user.
func (c *Client) DisplayReview(rv Review, now time.Time) ReviewDisplay {
	return ReviewDisplay{
		Review:    rv,
		PostedAgo: domain.TimeAgo(rv.CreatedAt, now),
		IsOwner:   c.userID != "" && rv.UserID == c.userID,
	}
}

// DisplaySummary decorates a summary with star fill values for positions
// 1 through 5.
func DisplaySummary(s ReviewSummary) SummaryDisplay {
	out := SummaryDisplay{ReviewSummary: s}
	for i := range out.Stars {
		out.Stars[i] = domain.StarFill(s.AverageRating, i+1)
	}
	return out
}
