package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-travel-booking/internal/domain/agency"
	"github.com/sanosuguru/go-travel-booking/internal/domain/booking"
	"github.com/sanosuguru/go-travel-booking/internal/domain/trip"
	redisinfra "github.com/sanosuguru/go-travel-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-travel-booking/internal/pkg/logger"
)

const availabilityCacheTTL = 30 * time.Second

// TripService はツアーの管理と残席照会を提供する
type TripService struct {
	tripRepo    trip.Repository
	agencyRepo  agency.Repository
	bookingRepo booking.Repository
	cache       redisinfra.AvailabilityCacheInterface
}

func NewTripService(tr trip.Repository, ar agency.Repository, br booking.Repository, cache redisinfra.AvailabilityCacheInterface) *TripService {
	return &TripService{tripRepo: tr, agencyRepo: ar, bookingRepo: br, cache: cache}
}

type CreateTripInput struct {
	AgencyID       string
	Description    string
	Location       string
	DeparturePoint string
	DepartAt       string // 取り込み境界で一度だけ正規化する
	PricePerSeat   int
	TotalSeats     int
}

// CreateTrip は新しいツアーを作成する
// 出発日時はここで一度だけ正規化され、以降の読み取りでは解析を行わない
func (s *TripService) CreateTrip(ctx context.Context, input CreateTripInput) (*trip.Trip, error) {
	if _, err := s.agencyRepo.GetByID(ctx, input.AgencyID); err != nil {
		return nil, fmt.Errorf("代理店取得に失敗: %w", err)
	}

	departAt, err := trip.ParseDepartureTime(input.DepartAt)
	if err != nil {
		return nil, err
	}

	t := trip.NewTrip(input.AgencyID, input.Description, input.Location, input.DeparturePoint, departAt, input.PricePerSeat, input.TotalSeats)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.tripRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TripService) GetTrip(ctx context.Context, id string) (*trip.Trip, error) {
	return s.tripRepo.GetByID(ctx, id)
}

func (s *TripService) ListTrips(ctx context.Context, limit, offset int) ([]*trip.Trip, error) {
	limit, offset = normalizePage(limit, offset)
	return s.tripRepo.List(ctx, limit, offset)
}

func (s *TripService) ListAgencyTrips(ctx context.Context, agencyID string, limit, offset int) ([]*trip.Trip, error) {
	limit, offset = normalizePage(limit, offset)
	return s.tripRepo.GetByAgencyID(ctx, agencyID, limit, offset)
}

type UpdateTripInput struct {
	ID             string
	Description    string
	Location       string
	DeparturePoint string
	DepartAt       string
	PricePerSeat   int
}

// UpdateTrip はツアーの表示項目を更新する
// 座席数（総数・予約済み）はここからは変更できない
func (s *TripService) UpdateTrip(ctx context.Context, input UpdateTripInput) (*trip.Trip, error) {
	t, err := s.tripRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	departAt, err := trip.ParseDepartureTime(input.DepartAt)
	if err != nil {
		return nil, err
	}

	t.Description = input.Description
	t.Location = input.Location
	t.DeparturePoint = input.DeparturePoint
	t.DepartAt = departAt
	t.PricePerSeat = input.PricePerSeat
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.tripRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTrip はツアーを削除する
// 有効な予約が残っている場合は削除を拒否する
func (s *TripService) DeleteTrip(ctx context.Context, id string) error {
	count, err := s.bookingRepo.CountActiveByTripID(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return trip.ErrTripHasBookings
	}
	if err := s.tripRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// GetAvailableSeats はツアーの残席数を返す
// キャッシュ経由で返し、ミス時はDBの値をTTL付きで保存する
// 予約の可否判定には使わない（判定はBookingServiceが常に最新値で行う）
func (s *TripService) GetAvailableSeats(ctx context.Context, tripID string) (int, error) {
	if s.cache != nil {
		count, err := s.cache.GetAvailableSeats(ctx, tripID)
		if err == nil {
			logger.Debug("キャッシュヒット", zap.String("trip_id", tripID), zap.Int("count", count))
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	t, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return 0, err
	}
	available := t.AvailableSeats()

	if s.cache != nil {
		if cacheErr := s.cache.SetAvailableSeats(ctx, tripID, available, availabilityCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return available, nil
}

func (s *TripService) invalidate(ctx context.Context, tripID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, tripID); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.String("trip_id", tripID), zap.Error(err))
	}
}
