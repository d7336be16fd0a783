package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-travel-booking/internal/domain/booking"
	"github.com/sanosuguru/go-travel-booking/internal/domain/trip"
	"github.com/sanosuguru/go-travel-booking/internal/pkg/logger"
)

const defaultBookingPageSize = 20

// TripSummary は予約一覧に添えるツアーの表示項目
// ツアーが削除済みの場合は Found が false になり、表示用の既定値が入る
type TripSummary struct {
	TripID       string
	Description  string
	Location     string
	PricePerSeat int
	DepartAt     time.Time
	Found        bool
}

// placeholderDescription は削除済みツアーの表示用プレースホルダ
const placeholderDescription = "（削除されたツアー）"

// UserBookingView は利用者向け予約一覧の1行
type UserBookingView struct {
	Booking *booking.Booking
	Trip    TripSummary
}

// BookingQueryService は予約の読み取り専用クエリを提供する
// 副作用は持たず、結合失敗は行単位で既定値に置き換える（一覧全体を失敗させない）
type BookingQueryService struct {
	bookingRepo booking.Repository
	tripRepo    trip.Repository
}

func NewBookingQueryService(br booking.Repository, tr trip.Repository) *BookingQueryService {
	return &BookingQueryService{bookingRepo: br, tripRepo: tr}
}

// ListUserBookings はユーザーの有効な予約一覧を新しい順に返す
// 各行にはツアーの表示項目を結合する。ツアーが見つからない行は
// プレースホルダを入れて警告ログを出し、一覧自体は返す
func (s *BookingQueryService) ListUserBookings(ctx context.Context, userID string, limit, offset int) ([]UserBookingView, error) {
	limit, offset = normalizePage(limit, offset)

	bookings, err := s.bookingRepo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return []UserBookingView{}, nil
	}

	tripIDs := make([]string, 0, len(bookings))
	seen := make(map[string]struct{}, len(bookings))
	for _, b := range bookings {
		if _, ok := seen[b.TripID]; !ok {
			seen[b.TripID] = struct{}{}
			tripIDs = append(tripIDs, b.TripID)
		}
	}

	trips, err := s.tripRepo.GetByIDs(ctx, tripIDs)
	if err != nil {
		// 結合失敗は一覧を落とさず、全行プレースホルダで返す
		logger.Warn("ツアー結合に失敗したためプレースホルダで代替します", zap.String("user_id", userID), zap.Error(err))
		trips = map[string]*trip.Trip{}
	}

	views := make([]UserBookingView, len(bookings))
	for i, b := range bookings {
		views[i] = UserBookingView{Booking: b, Trip: s.summarize(b.TripID, trips)}
	}
	return views, nil
}

// ListTripBookings はツアーの有効な予約一覧を返す（代理店・管理者向け）
// 連絡先は予約行に埋め込まれているため追加の結合は不要
func (s *BookingQueryService) ListTripBookings(ctx context.Context, tripID string, limit, offset int) ([]*booking.Booking, error) {
	limit, offset = normalizePage(limit, offset)
	return s.bookingRepo.GetByTripID(ctx, tripID, limit, offset)
}

// SeatConsistency は座席カウンタと有効予約の座席数合計の照合結果
type SeatConsistency struct {
	TripID       string
	BookedSeats  int
	SumOfActives int
	Consistent   bool
}

// CheckSeatConsistency はツアーの座席カウンタと予約の合計が一致するかを検証する
func (s *BookingQueryService) CheckSeatConsistency(ctx context.Context, tripID string) (*SeatConsistency, error) {
	t, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	sum, err := s.bookingRepo.SumActiveSeatsByTripID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return &SeatConsistency{
		TripID:       tripID,
		BookedSeats:  t.BookedSeats,
		SumOfActives: sum,
		Consistent:   t.BookedSeats == sum,
	}, nil
}

func (s *BookingQueryService) summarize(tripID string, trips map[string]*trip.Trip) TripSummary {
	t, ok := trips[tripID]
	if !ok || t == nil {
		logger.Warn("予約の参照するツアーが見つかりません", zap.String("trip_id", tripID))
		return TripSummary{TripID: tripID, Description: placeholderDescription, Found: false}
	}
	return TripSummary{
		TripID:       t.ID,
		Description:  t.Description,
		Location:     t.Location,
		PricePerSeat: t.PricePerSeat,
		DepartAt:     t.DepartAt,
		Found:        true,
	}
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultBookingPageSize
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
