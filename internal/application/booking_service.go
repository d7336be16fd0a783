package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-travel-booking/internal/domain/booking"
	"github.com/sanosuguru/go-travel-booking/internal/domain/transaction"
	"github.com/sanosuguru/go-travel-booking/internal/domain/trip"
	redisinfra "github.com/sanosuguru/go-travel-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-travel-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-travel-booking/internal/pkg/metrics"
)

// BookingService は予約の作成・変更・キャンセルを担う唯一のコンポーネント
// 予約行の書き込みとツアーの座席カウンタ更新を常に単一トランザクションで行い、
// カウンタ更新には条件付きUPDATE（天井・床チェック付き）を使うことで
// 並行リクエスト下でも超過予約が起きないことを保証する
type BookingService struct {
	txManager   transaction.Manager
	bookingRepo booking.Repository
	tripRepo    trip.Repository
	lockManager redisinfra.LockManagerInterface
	cache       redisinfra.AvailabilityCacheInterface
	metrics     *metrics.Metrics

	lockTTL              time.Duration
	lockRetries          int
	lockRetryDelay       time.Duration
	contentionRetries    int
	contentionRetryDelay time.Duration
}

// BookingServiceOption はBookingServiceの任意設定
type BookingServiceOption func(*BookingService)

// WithLockManager はツアー単位の分散ロックを有効にする
func WithLockManager(lm redisinfra.LockManagerInterface) BookingServiceOption {
	return func(s *BookingService) { s.lockManager = lm }
}

// WithAvailabilityCache は残席数キャッシュの無効化を有効にする
func WithAvailabilityCache(c redisinfra.AvailabilityCacheInterface) BookingServiceOption {
	return func(s *BookingService) { s.cache = c }
}

// WithMetrics は予約メトリクスの記録を有効にする
func WithMetrics(m *metrics.Metrics) BookingServiceOption {
	return func(s *BookingService) { s.metrics = m }
}

// WithContentionRetry はストア競合時のリトライ回数と間隔を設定する
func WithContentionRetry(retries int, delay time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.contentionRetries = retries
		s.contentionRetryDelay = delay
	}
}

// WithLockRetry は分散ロックのTTLとリトライ設定を変更する
func WithLockRetry(ttl time.Duration, retries int, delay time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.lockTTL = ttl
		s.lockRetries = retries
		s.lockRetryDelay = delay
	}
}

func NewBookingService(tm transaction.Manager, br booking.Repository, tr trip.Repository, opts ...BookingServiceOption) *BookingService {
	s := &BookingService{
		txManager:            tm,
		bookingRepo:          br,
		tripRepo:             tr,
		lockTTL:              10 * time.Second,
		lockRetries:          3,
		lockRetryDelay:       100 * time.Millisecond,
		contentionRetries:    3,
		contentionRetryDelay: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateBookingInput struct {
	TripID  string
	UserID  string
	Contact booking.Contact
	Seats   int
}

// CreateBooking は予約を作成する
// 残席の検証はコミット直前に再読み込みした値に対して行われ、
// カウンタの条件付きUPDATEが同時リクエストとの競合を最終的に裁定する
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*booking.Booking, error) {
	b := booking.NewBooking(input.TripID, input.UserID, input.Contact, input.Seats, 0)
	if err := b.Validate(); err != nil {
		return nil, err
	}

	unlock, err := s.acquireTripLock(ctx, input.TripID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var created *booking.Booking
	err = s.withContentionRetry(ctx, func(ctx context.Context) error {
		res, err := s.createOnce(ctx, input)
		if err != nil {
			return err
		}
		created = res
		return nil
	})
	if err != nil {
		s.recordBooking("create", err)
		return nil, err
	}

	s.invalidateAvailability(ctx, input.TripID)
	s.recordBooking("create", nil)
	if s.metrics != nil {
		s.metrics.BookedSeatsTotal.Add(float64(input.Seats))
	}
	return created, nil
}

func (s *BookingService) createOnce(ctx context.Context, input CreateBookingInput) (*booking.Booking, error) {
	// コミット直前の値を読む（古いキャッシュからの検証は行わない）
	t, err := s.tripRepo.GetByID(ctx, input.TripID)
	if err != nil {
		return nil, err
	}
	if !t.CanBook(input.Seats) {
		return nil, insufficientSeatsError(t.AvailableSeats())
	}

	b := booking.NewBooking(input.TripID, input.UserID, input.Contact, input.Seats, t.PricePerSeat)
	if err := b.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := s.bookingRepo.Create(ctx, tx, b); err != nil {
		return nil, err
	}
	ok, err := s.tripRepo.ApplySeatDelta(ctx, tx, input.TripID, input.Seats)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 読み取りと更新の間に他の予約が入ったか、ツアーが消えた
		return nil, s.classifySeatDeltaFailure(ctx, tx, input.TripID)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return b, nil
}

// UpdateBookingSeats は予約の座席数を変更する
// 差分が正の場合は残席を再検証し、負の場合は常に補償減算を同一トランザクションで適用する
func (s *BookingService) UpdateBookingSeats(ctx context.Context, bookingID, userID string, newSeats int) (*booking.Booking, error) {
	if newSeats <= 0 {
		return nil, booking.ErrInvalidSeats
	}

	current, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !current.IsOwnedBy(userID) {
		return nil, booking.ErrBookingNotOwned
	}

	unlock, err := s.acquireTripLock(ctx, current.TripID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var updated *booking.Booking
	err = s.withContentionRetry(ctx, func(ctx context.Context) error {
		res, err := s.updateSeatsOnce(ctx, bookingID, userID, newSeats)
		if err != nil {
			return err
		}
		updated = res
		return nil
	})
	if err != nil {
		s.recordBooking("modify", err)
		return nil, err
	}

	s.invalidateAvailability(ctx, updated.TripID)
	s.recordBooking("modify", nil)
	return updated, nil
}

func (s *BookingService) updateSeatsOnce(ctx context.Context, bookingID, userID string, newSeats int) (*booking.Booking, error) {
	// リトライのたびに最新の予約を読み直す
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsOwnedBy(userID) {
		return nil, booking.ErrBookingNotOwned
	}
	delta := newSeats - b.Seats
	if delta == 0 {
		return b, nil
	}

	t, err := s.tripRepo.GetByID(ctx, b.TripID)
	if err != nil {
		return nil, err
	}
	if err := b.ChangeSeats(newSeats, t.PricePerSeat); err != nil {
		return nil, err
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
		return nil, err
	}
	ok, err := s.tripRepo.ApplySeatDelta(ctx, tx, b.TripID, delta)
	if err != nil {
		return nil, err
	}
	if !ok {
		if delta > 0 {
			return nil, s.classifySeatDeltaFailure(ctx, tx, b.TripID)
		}
		// 減算が床チェックに当たるのはカウンタが既に壊れている場合のみ
		return nil, fmt.Errorf("座席カウンタの整合性が失われています（trip_id=%s）", b.TripID)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return b, nil
}

// CancelBooking は予約をキャンセルし、座席カウンタを同一トランザクションで補償減算する
// 減算を伴わないキャンセルはカウンタ不整合の原因になるため存在しない
func (s *BookingService) CancelBooking(ctx context.Context, bookingID string) (*booking.Booking, error) {
	current, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.acquireTripLock(ctx, current.TripID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var cancelled *booking.Booking
	err = s.withContentionRetry(ctx, func(ctx context.Context) error {
		res, err := s.cancelOnce(ctx, bookingID)
		if err != nil {
			return err
		}
		cancelled = res
		return nil
	})
	if err != nil {
		s.recordBooking("cancel", err)
		return nil, err
	}

	s.invalidateAvailability(ctx, cancelled.TripID)
	s.recordBooking("cancel", nil)
	return cancelled, nil
}

func (s *BookingService) cancelOnce(ctx context.Context, bookingID string) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	seats := b.Seats
	if err := b.Cancel(); err != nil {
		return nil, err
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
		return nil, err
	}
	ok, err := s.tripRepo.ApplySeatDelta(ctx, tx, b.TripID, -seats)
	if err != nil {
		return nil, err
	}
	if !ok {
		// ツアーが既に削除されている場合は予約のキャンセルだけを確定させる
		if _, gerr := s.tripRepo.GetForShare(ctx, tx, b.TripID); errors.Is(gerr, trip.ErrTripNotFound) {
			logger.Warn("キャンセル対象の予約のツアーが存在しません", zap.String("booking_id", b.ID), zap.String("trip_id", b.TripID))
		} else {
			return nil, fmt.Errorf("座席カウンタの整合性が失われています（trip_id=%s）", b.TripID)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return b, nil
}

// MarkPaymentResult は決済結果を記録する
// pending からのみ遷移でき、completed / failed は終端状態
// 座席数の変更とは直交しており、カウンタには触れない
func (s *BookingService) MarkPaymentResult(ctx context.Context, bookingID string, status booking.PaymentStatus) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := b.MarkPayment(status); err != nil {
		return nil, err
	}
	if err := s.bookingRepo.UpdatePayment(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetBooking はIDから予約を取得する
func (s *BookingService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

// classifySeatDeltaFailure は条件付きUPDATEの失敗理由を同一トランザクション内で判別する
// 利用者には棄却時点の実際の残席数を返す
func (s *BookingService) classifySeatDeltaFailure(ctx context.Context, tx transaction.Tx, tripID string) error {
	t, err := s.tripRepo.GetForShare(ctx, tx, tripID)
	if err != nil {
		return err
	}
	return insufficientSeatsError(t.AvailableSeats())
}

// withContentionRetry はストア競合を限定回数リトライする
// 競合以外のエラーは即座に返す
func (s *BookingService) withContentionRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(uint64(s.contentionRetries), retry.NewConstant(s.contentionRetryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, transaction.ErrContention) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// acquireTripLock はツアー単位の分散ロックを取得する
// ロックは競合の削減のためであり、正しさはストア側の条件付き更新が保証する
func (s *BookingService) acquireTripLock(ctx context.Context, tripID string) (func(), error) {
	if s.lockManager == nil {
		return func() {}, nil
	}
	lock, err := s.lockManager.AcquireLockWithRetry(ctx, "trips:"+tripID, s.lockTTL, s.lockRetries, s.lockRetryDelay)
	if err != nil {
		if errors.Is(err, redisinfra.ErrLockNotAcquired) {
			return nil, transaction.ErrContention
		}
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	return func() {
		if rerr := lock.Release(ctx); rerr != nil {
			logger.Warn("ロック解放に失敗", zap.String("trip_id", tripID), zap.Error(rerr))
		}
	}, nil
}

func (s *BookingService) invalidateAvailability(ctx context.Context, tripID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, tripID); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.String("trip_id", tripID), zap.Error(err))
	}
}

func (s *BookingService) recordBooking(operation string, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, trip.ErrInsufficientSeats):
		status = "insufficient_seats"
	case errors.Is(err, transaction.ErrContention):
		status = "contention"
	default:
		status = "error"
	}
	s.metrics.BookingsTotal.WithLabelValues(operation, status).Inc()
}

func insufficientSeatsError(available int) error {
	return fmt.Errorf("%w（残り%d席）", trip.ErrInsufficientSeats, available)
}
