package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/khoitriso/review-service/internal/domain"
	pkgkafka "github.com/khoitriso/review-service/pkg/kafka"
)

// Kafka topic constants for review domain events.
const (
	TopicReviewCreated      = "learning.review.created"
	TopicReviewUpdated      = "learning.review.updated"
	TopicReviewDeleted      = "learning.review.deleted"
	TopicReviewHelpfulVoted = "learning.review.helpful_voted"
)

// Aggregate type constant.
const AggregateTypeReview = "review"

// Source identifier for events originating from the review service.
const SourceReviewService = "review-service"

// ReviewEventData is the payload for review.created and review.updated
// events (full review snapshot).
type ReviewEventData struct {
	ID                 string `json:"id"`
	UserID             string `json:"user_id"`
	ItemType           string `json:"item_type"`
	ItemID             int64  `json:"item_id"`
	Rating             int    `json:"rating"`
	Title              string `json:"title,omitempty"`
	Content            string `json:"content"`
	IsVerifiedPurchase bool   `json:"is_verified_purchase"`
}

// ReviewDeletedData is the payload for a review.deleted event.
type ReviewDeletedData struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	ItemType string `json:"item_type"`
	ItemID   int64  `json:"item_id"`
}

// HelpfulVotedData is the payload for a review.helpful_voted event.
type HelpfulVotedData struct {
	ReviewID     string `json:"review_id"`
	VoterID      string `json:"voter_id"`
	HelpfulCount int    `json:"helpful_count"`
}

// Producer publishes review domain events to Kafka. Downstream consumers
// include the search indexer and the notification service.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return p.publishSnapshot(ctx, TopicReviewCreated, review)
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, review *domain.Review) error {
	return p.publishSnapshot(ctx, TopicReviewUpdated, review)
}

func (p *Producer) publishSnapshot(ctx context.Context, topic string, review *domain.Review) error {
	data := ReviewEventData{
		ID:                 review.ID,
		UserID:             review.UserID,
		ItemType:           review.ItemType.String(),
		ItemID:             review.ItemID,
		Rating:             review.Rating,
		Title:              review.Title,
		Content:            review.Content,
		IsVerifiedPurchase: review.IsVerifiedPurchase,
	}

	event, err := pkgkafka.NewEvent(topic, review.ID, AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published review event",
		slog.String("topic", topic),
		slog.String("review_id", review.ID),
		slog.String("item_type", review.ItemType.String()),
		slog.Int64("item_id", review.ItemID),
	)

	return nil
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, review *domain.Review) error {
	data := ReviewDeletedData{
		ID:       review.ID,
		UserID:   review.UserID,
		ItemType: review.ItemType.String(),
		ItemID:   review.ItemID,
	}

	event, err := pkgkafka.NewEvent(TopicReviewDeleted, review.ID, AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create review.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewDeleted, event); err != nil {
		return fmt.Errorf("publish review.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.deleted event",
		slog.String("review_id", review.ID),
	)

	return nil
}

// PublishHelpfulVoted publishes a review.helpful_voted event.
func (p *Producer) PublishHelpfulVoted(ctx context.Context, reviewID, voterID string, helpfulCount int) error {
	data := HelpfulVotedData{
		ReviewID:     reviewID,
		VoterID:      voterID,
		HelpfulCount: helpfulCount,
	}

	event, err := pkgkafka.NewEvent(TopicReviewHelpfulVoted, reviewID, AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create review.helpful_voted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewHelpfulVoted, event); err != nil {
		return fmt.Errorf("publish review.helpful_voted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.helpful_voted event",
		slog.String("review_id", reviewID),
		slog.Int("helpful_count", helpfulCount),
	)

	return nil
}
