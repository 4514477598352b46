package domain

import (
	"slices"
	"time"

	apperrors "github.com/JLTC3111/Quyenhair/pkg/errors"
)

// BookingStatus is the lifecycle state of an appointment request.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// BookingStatuses returns every booking status.
func BookingStatuses() []BookingStatus {
	return []BookingStatus{BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled}
}

// ParseBookingStatus validates s against BookingStatuses.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !slices.Contains(BookingStatuses(), status) {
		return "", apperrors.InvalidStatus(s, "pending", "confirmed", "completed", "cancelled")
	}
	return status, nil
}

// Booking is an appointment request. UserID is empty for anonymous bookings.
type Booking struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id,omitempty"`
	Name        string        `json:"name"`
	Phone       string        `json:"phone"`
	Email       string        `json:"email,omitempty"`
	Service     string        `json:"service"`
	BookingDate time.Time     `json:"booking_date"`
	Message     string        `json:"message,omitempty"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
