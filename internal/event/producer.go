package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/JLTC3111/Quyenhair/internal/domain"
	pkgkafka "github.com/JLTC3111/Quyenhair/pkg/kafka"
	"github.com/JLTC3111/Quyenhair/pkg/logger"
)

// Kafka topics.
var (
	TopicReviews  = pkgkafka.Topic("salon", "reviews")
	TopicBookings = pkgkafka.Topic("salon", "bookings")
)

// Event types.
const (
	TypeReviewSubmitted = "review.submitted"
	TypeReviewModerated = "review.moderated"
	TypeReviewDeleted   = "review.deleted"
	TypeBookingCreated  = "booking.created"
)

// Subject kinds.
const (
	SubjectReview  = "review"
	SubjectBooking = "booking"
)

// SourceReviewAPI identifies events originating from this service.
const SourceReviewAPI = "review-api"

// ReviewSubmittedData is the payload for a review.submitted event.
type ReviewSubmittedData struct {
	ReviewID int64               `json:"review_id"`
	UserID   string              `json:"user_id"`
	Rating   int                 `json:"rating"`
	Status   domain.ReviewStatus `json:"status"`
}

// ReviewModeratedData is the payload for a review.moderated event.
type ReviewModeratedData struct {
	ReviewID    int64               `json:"review_id"`
	ModeratorID string              `json:"moderator_id"`
	Status      domain.ReviewStatus `json:"status"`
	Notes       string              `json:"notes,omitempty"`
}

// ReviewDeletedData is the payload for a review.deleted event.
type ReviewDeletedData struct {
	ReviewID  int64  `json:"review_id"`
	DeletedBy string `json:"deleted_by"`
}

// BookingCreatedData is the payload for a booking.created event.
type BookingCreatedData struct {
	BookingID   string `json:"booking_id"`
	UserID      string `json:"user_id,omitempty"`
	Service     string `json:"service"`
	BookingDate string `json:"booking_date"`
}

// Producer publishes review and booking events. A nil Producer, or one built
// without a Kafka producer, drops every event.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer. kafka may be nil when messaging
// is disabled.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// Enabled reports whether events are actually sent.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

// PublishReviewSubmitted publishes a review.submitted event.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviews, TypeReviewSubmitted, reviewSubject(r.ID), ReviewSubmittedData{
		ReviewID: r.ID,
		UserID:   r.UserID,
		Rating:   r.Rating,
		Status:   r.Status,
	})
}

// PublishReviewModerated publishes a review.moderated event.
func (p *Producer) PublishReviewModerated(ctx context.Context, reviewID int64, moderatorID string, status domain.ReviewStatus, notes string) error {
	return p.publish(ctx, TopicReviews, TypeReviewModerated, reviewSubject(reviewID), ReviewModeratedData{
		ReviewID:    reviewID,
		ModeratorID: moderatorID,
		Status:      status,
		Notes:       notes,
	})
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, reviewID int64, deletedBy string) error {
	return p.publish(ctx, TopicReviews, TypeReviewDeleted, reviewSubject(reviewID), ReviewDeletedData{
		ReviewID:  reviewID,
		DeletedBy: deletedBy,
	})
}

// PublishBookingCreated publishes a booking.created event.
func (p *Producer) PublishBookingCreated(ctx context.Context, b *domain.Booking) error {
	return p.publish(ctx, TopicBookings, TypeBookingCreated, pkgkafka.Subject{Kind: SubjectBooking, ID: b.ID}, BookingCreatedData{
		BookingID:   b.ID,
		UserID:      b.UserID,
		Service:     b.Service,
		BookingDate: b.BookingDate.UTC().Format(time.RFC3339),
	})
}

// publish stamps the request's correlation id and acting user on the
// envelope before handing it to Kafka.
func (p *Producer) publish(ctx context.Context, topic, eventType string, subject pkgkafka.Subject, payload any) error {
	if !p.Enabled() {
		return nil
	}

	event, err := pkgkafka.NewEvent(eventType, subject, SourceReviewAPI, payload)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	event.CorrelationID = logger.CorrelationIDFromContext(ctx)
	event.Actor = logger.UserIDFromContext(ctx)

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return nil
}

func reviewSubject(id int64) pkgkafka.Subject {
	return pkgkafka.Subject{Kind: SubjectReview, ID: strconv.FormatInt(id, 10)}
}
