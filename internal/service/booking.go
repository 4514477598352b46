package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JLTC3111/Quyenhair/internal/domain"
	"github.com/JLTC3111/Quyenhair/internal/event"
	"github.com/JLTC3111/Quyenhair/internal/repository"
	apperrors "github.com/JLTC3111/Quyenhair/pkg/errors"
	"github.com/JLTC3111/Quyenhair/pkg/validator"
)

// CreateBookingInput holds an appointment request.
type CreateBookingInput struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	Phone       string `json:"phone" validate:"required,max=50,phone"`
	Email       string `json:"email" validate:"omitempty,email,max=255"`
	Service     string `json:"service" validate:"required,max=255"`
	BookingDate string `json:"booking_date" validate:"required"`
	Message     string `json:"message" validate:"max=1000"`
}

// BookingService manages appointment requests.
type BookingService struct {
	repo     repository.BookingRepository
	producer *event.Producer
	now      func() time.Time
	logger   *slog.Logger
}

// NewBookingService creates a new booking service.
func NewBookingService(repo repository.BookingRepository, producer *event.Producer, logger *slog.Logger) *BookingService {
	return &BookingService{
		repo:     repo,
		producer: producer,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// Create stores a booking. userID is empty for anonymous requests.
func (s *BookingService) Create(ctx context.Context, userID string, in CreateBookingInput) (*domain.Booking, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	when, err := time.Parse(time.RFC3339, in.BookingDate)
	if err != nil {
		return nil, apperrors.InvalidInput("booking_date must be an RFC 3339 timestamp")
	}
	now := s.now()
	if !when.After(now) {
		return nil, apperrors.InvalidInput("booking_date must be in the future")
	}

	b := &domain.Booking{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        in.Name,
		Phone:       strings.TrimSpace(in.Phone),
		Email:       in.Email,
		Service:     strings.TrimSpace(in.Service),
		BookingDate: when.UTC(),
		Message:     strings.TrimSpace(in.Message),
		Status:      domain.BookingPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if err := s.producer.PublishBookingCreated(ctx, b); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish booking.created event",
			slog.String("booking_id", b.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "booking created",
		slog.String("booking_id", b.ID),
		slog.Bool("anonymous", userID == ""),
	)
	return b, nil
}

// ListMine returns the caller's bookings.
func (s *BookingService) ListMine(ctx context.Context, userID string) ([]domain.Booking, error) {
	bookings, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	return bookings, nil
}

// Get returns a booking owned by userID. Admins may read any booking.
func (s *BookingService) Get(ctx context.Context, id, userID string, isAdmin bool) (*domain.Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("booking", id)
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if b.UserID != userID && !isAdmin {
		return nil, apperrors.Forbidden("Not authorized")
	}
	return b, nil
}

// UpdateStatus moves a booking to status.
func (s *BookingService) UpdateStatus(ctx context.Context, id, userID string, isAdmin bool, status string) (*domain.Booking, error) {
	next, err := domain.ParseBookingStatus(status)
	if err != nil {
		return nil, err
	}

	b, err := s.Get(ctx, id, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	b.Status = next
	b.UpdatedAt = s.now()

	s.logger.InfoContext(ctx, "booking status changed",
		slog.String("booking_id", id),
		slog.String("status", string(next)),
	)
	return b, nil
}

// Cancel marks a booking as cancelled.
func (s *BookingService) Cancel(ctx context.Context, id, userID string, isAdmin bool) (*domain.Booking, error) {
	return s.UpdateStatus(ctx, id, userID, isAdmin, string(domain.BookingCancelled))
}
