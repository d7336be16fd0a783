package handler

import (
	"context"

	"github.com/sanosuguru/go-travel-booking/internal/application"
	"github.com/sanosuguru/go-travel-booking/internal/domain/agency"
	"github.com/sanosuguru/go-travel-booking/internal/domain/booking"
	"github.com/sanosuguru/go-travel-booking/internal/domain/trip"
)

// TripServiceInterface はツアーサービスのインターフェース
type TripServiceInterface interface {
	CreateTrip(ctx context.Context, input application.CreateTripInput) (*trip.Trip, error)
	GetTrip(ctx context.Context, id string) (*trip.Trip, error)
	ListTrips(ctx context.Context, limit, offset int) ([]*trip.Trip, error)
	ListAgencyTrips(ctx context.Context, agencyID string, limit, offset int) ([]*trip.Trip, error)
	UpdateTrip(ctx context.Context, input application.UpdateTripInput) (*trip.Trip, error)
	DeleteTrip(ctx context.Context, id string) error
	GetAvailableSeats(ctx context.Context, tripID string) (int, error)
}

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	CreateBooking(ctx context.Context, input application.CreateBookingInput) (*booking.Booking, error)
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	UpdateBookingSeats(ctx context.Context, bookingID, userID string, newSeats int) (*booking.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) (*booking.Booking, error)
	MarkPaymentResult(ctx context.Context, bookingID string, status booking.PaymentStatus) (*booking.Booking, error)
}

// BookingQueryServiceInterface は予約クエリサービスのインターフェース
type BookingQueryServiceInterface interface {
	ListUserBookings(ctx context.Context, userID string, limit, offset int) ([]application.UserBookingView, error)
	ListTripBookings(ctx context.Context, tripID string, limit, offset int) ([]*booking.Booking, error)
	CheckSeatConsistency(ctx context.Context, tripID string) (*application.SeatConsistency, error)
}

// AgencyServiceInterface は代理店サービスのインターフェース
type AgencyServiceInterface interface {
	CreateAgency(ctx context.Context, input application.CreateAgencyInput) (*agency.Agency, error)
	GetAgency(ctx context.Context, id string) (*agency.Agency, error)
	GetAgencyByOwner(ctx context.Context, ownerID string) (*agency.Agency, error)
	UpdateAgency(ctx context.Context, input application.UpdateAgencyInput) (*agency.Agency, error)
}
