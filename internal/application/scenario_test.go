package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-travel-booking/internal/domain/booking"
	"github.com/sanosuguru/go-travel-booking/internal/domain/transaction"
	"github.com/sanosuguru/go-travel-booking/internal/domain/trip"
)

// === In-memory store（条件付き座席カウンタ更新の意味論を再現する） ===

type memStore struct {
	mu       sync.Mutex
	trips    map[string]*trip.Trip
	bookings map[string]*booking.Booking
	seq      int
}

func newMemStore() *memStore {
	return &memStore{
		trips:    make(map[string]*trip.Trip),
		bookings: make(map[string]*booking.Booking),
	}
}

// memTx はトランザクションの操作ログを保持し、Commit時にまとめて適用する
type memTx struct {
	store    *memStore
	applied  bool
	pending  []func()
	rollback []func()
}

func (tx *memTx) Commit() error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for _, apply := range tx.pending {
		apply()
	}
	tx.applied = true
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.applied {
		return nil
	}
	for _, undo := range tx.rollback {
		undo()
	}
	return nil
}

type memTxManager struct {
	store *memStore
}

func (m *memTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	return &memTx{store: m.store}, nil
}

type memTripRepo struct {
	store *memStore
}

func (r *memTripRepo) Create(ctx context.Context, t *trip.Trip) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.seq++
	t.ID = fmt.Sprintf("trip-%d", r.store.seq)
	clone := *t
	r.store.trips[t.ID] = &clone
	return nil
}

func (r *memTripRepo) GetByID(ctx context.Context, id string) (*trip.Trip, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.trips[id]
	if !ok {
		return nil, trip.ErrTripNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *memTripRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*trip.Trip, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := make(map[string]*trip.Trip)
	for _, id := range ids {
		if t, ok := r.store.trips[id]; ok {
			clone := *t
			result[id] = &clone
		}
	}
	return result, nil
}

func (r *memTripRepo) List(ctx context.Context, limit, offset int) ([]*trip.Trip, error) {
	return nil, nil
}

func (r *memTripRepo) GetByAgencyID(ctx context.Context, agencyID string, limit, offset int) ([]*trip.Trip, error) {
	return nil, nil
}

func (r *memTripRepo) Update(ctx context.Context, t *trip.Trip) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	clone := *t
	r.store.trips[t.ID] = &clone
	return nil
}

func (r *memTripRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.trips, id)
	return nil
}

// ApplySeatDelta は本物のストアと同じく「booked + delta が範囲内の場合のみ成功」を
// 単一のクリティカルセクションで判定・適用する
func (r *memTripRepo) ApplySeatDelta(ctx context.Context, tx transaction.Tx, tripID string, delta int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.trips[tripID]
	if !ok {
		return false, nil
	}
	next := t.BookedSeats + delta
	if next < 0 || next > t.TotalSeats {
		return false, nil
	}
	prev := t.BookedSeats
	t.BookedSeats = next
	mtx := tx.(*memTx)
	mtx.rollback = append(mtx.rollback, func() {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
		if cur, ok := r.store.trips[tripID]; ok {
			cur.BookedSeats = prev
		}
	})
	return true, nil
}

func (r *memTripRepo) GetForShare(ctx context.Context, tx transaction.Tx, id string) (*trip.Trip, error) {
	return r.GetByID(ctx, id)
}

func (r *memTripRepo) ListLegacyDepartures(ctx context.Context, limit int) ([]trip.LegacyDeparture, error) {
	return nil, nil
}

func (r *memTripRepo) SetDepartAt(ctx context.Context, tripID string, departAt time.Time) error {
	return nil
}

type memBookingRepo struct {
	store *memStore
}

func (r *memBookingRepo) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.seq++
	b.ID = fmt.Sprintf("booking-%d", r.store.seq)
	clone := *b
	mtx := tx.(*memTx)
	mtx.pending = append(mtx.pending, func() {
		r.store.bookings[clone.ID] = &clone
	})
	return nil
}

func (r *memBookingRepo) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	clone := *b
	return &clone, nil
}

func (r *memBookingRepo) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*booking.Booking
	for _, b := range r.store.bookings {
		if b.UserID == userID && b.IsActive() {
			clone := *b
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *memBookingRepo) GetByTripID(ctx context.Context, tripID string, limit, offset int) ([]*booking.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*booking.Booking
	for _, b := range r.store.bookings {
		if b.TripID == tripID && b.IsActive() {
			clone := *b
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *memBookingRepo) Update(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	clone := *b
	mtx := tx.(*memTx)
	mtx.pending = append(mtx.pending, func() {
		r.store.bookings[clone.ID] = &clone
	})
	return nil
}

func (r *memBookingRepo) UpdatePayment(ctx context.Context, b *booking.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cur, ok := r.store.bookings[b.ID]
	if !ok {
		return booking.ErrBookingNotFound
	}
	cur.PaymentStatus = b.PaymentStatus
	return nil
}

func (r *memBookingRepo) CountActiveByTripID(ctx context.Context, tripID string) (int, error) {
	bs, _ := r.GetByTripID(ctx, tripID, 0, 0)
	return len(bs), nil
}

func (r *memBookingRepo) SumActiveSeatsByTripID(ctx context.Context, tripID string) (int, error) {
	bs, _ := r.GetByTripID(ctx, tripID, 0, 0)
	sum := 0
	for _, b := range bs {
		sum += b.Seats
	}
	return sum, nil
}

func setupMemEnv(totalSeats int) (*BookingService, *BookingQueryService, *memTripRepo, string) {
	store := newMemStore()
	tripRepo := &memTripRepo{store: store}
	bookingRepo := &memBookingRepo{store: store}
	txManager := &memTxManager{store: store}

	t := trip.NewTrip("agency-1", "濃霧の摩周湖ツアー", "北海道", "釧路駅前", time.Now().Add(72*time.Hour), 8000, totalSeats)
	_ = tripRepo.Create(context.Background(), t)

	svc := NewBookingService(txManager, bookingRepo, tripRepo,
		WithContentionRetry(2, time.Millisecond))
	query := NewBookingQueryService(bookingRepo, tripRepo)
	return svc, query, tripRepo, t.ID
}

func memContact(name string) booking.Contact {
	return booking.Contact{Name: name, Email: name + "@example.com", Location: "札幌"}
}

// TestScenario_BookingLifecycle は予約の作成 → 変更 → キャンセルの一連の流れを検証する
func TestScenario_BookingLifecycle(t *testing.T) {
	svc, query, tripRepo, tripID := setupMemEnv(10)
	ctx := context.Background()

	// 1. 10席のツアーに10席の予約
	b, err := svc.CreateBooking(ctx, CreateBookingInput{
		TripID:  tripID,
		UserID:  "user-sato",
		Contact: memContact("sato"),
		Seats:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, 80000, b.TotalAmount)

	// 2. 満席なので追加の1席は拒否され、残席0が伝わる
	_, err = svc.CreateBooking(ctx, CreateBookingInput{
		TripID:  tripID,
		UserID:  "user-suzuki",
		Contact: memContact("suzuki"),
		Seats:   1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, trip.ErrInsufficientSeats)
	assert.Contains(t, err.Error(), "残り0席")

	// 3. 予約を10席→7席に縮小すると3席が解放される
	_, err = svc.UpdateBookingSeats(ctx, b.ID, "user-sato", 7)
	require.NoError(t, err)

	cur, err := tripRepo.GetByID(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, 3, cur.AvailableSeats())

	// 4. 解放された席に別の予約が入る
	b2, err := svc.CreateBooking(ctx, CreateBookingInput{
		TripID:  tripID,
		UserID:  "user-suzuki",
		Contact: memContact("suzuki"),
		Seats:   3,
	})
	require.NoError(t, err)

	// 5. キャンセルで座席が戻り、一覧から消える
	_, err = svc.CancelBooking(ctx, b2.ID)
	require.NoError(t, err)

	cur, err = tripRepo.GetByID(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, 3, cur.AvailableSeats())

	views, err := query.ListUserBookings(ctx, "user-suzuki", 20, 0)
	require.NoError(t, err)
	assert.Empty(t, views)

	// 6. カウンタと有効予約の合計は一致している
	consistency, err := query.CheckSeatConsistency(ctx, tripID)
	require.NoError(t, err)
	assert.True(t, consistency.Consistent)
}

// TestScenario_ConcurrentBooking は並行予約で座席が超過販売されないことを検証する
func TestScenario_ConcurrentBooking(t *testing.T) {
	const totalSeats = 10
	const attempts = 50

	svc, _, tripRepo, tripID := setupMemEnv(totalSeats)
	ctx := context.Background()

	var wg sync.WaitGroup
	var succeeded atomic.Int64
	var rejected atomic.Int64

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.CreateBooking(ctx, CreateBookingInput{
				TripID:  tripID,
				UserID:  fmt.Sprintf("user-%d", n),
				Contact: memContact(fmt.Sprintf("user%d", n)),
				Seats:   1,
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, trip.ErrInsufficientSeats):
				rejected.Add(1)
			default:
				t.Errorf("予期しないエラー: %v", err)
			}
		}(i)
	}
	wg.Wait()

	// 成功は座席数ちょうど、カウンタは総座席数を超えない
	assert.Equal(t, int64(totalSeats), succeeded.Load())
	assert.Equal(t, int64(attempts-totalSeats), rejected.Load())

	cur, err := tripRepo.GetByID(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, totalSeats, cur.BookedSeats)
	assert.Equal(t, 0, cur.AvailableSeats())
}

// TestScenario_ModifyRoundTrip は座席数を変更して元に戻すとカウンタが元の値に戻ることを検証する
func TestScenario_ModifyRoundTrip(t *testing.T) {
	svc, _, tripRepo, tripID := setupMemEnv(10)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, CreateBookingInput{
		TripID:  tripID,
		UserID:  "user-sato",
		Contact: memContact("sato"),
		Seats:   3,
	})
	require.NoError(t, err)

	before, err := tripRepo.GetByID(ctx, tripID)
	require.NoError(t, err)
	require.Equal(t, 3, before.BookedSeats)

	// 増やしてから元の席数に戻す
	_, err = svc.UpdateBookingSeats(ctx, b.ID, "user-sato", 7)
	require.NoError(t, err)

	mid, err := tripRepo.GetByID(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, 7, mid.BookedSeats)

	restored, err := svc.UpdateBookingSeats(ctx, b.ID, "user-sato", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, restored.Seats)

	after, err := tripRepo.GetByID(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, before.BookedSeats, after.BookedSeats)

	// 減らしてから戻す方向でも成立する
	_, err = svc.UpdateBookingSeats(ctx, b.ID, "user-sato", 1)
	require.NoError(t, err)
	_, err = svc.UpdateBookingSeats(ctx, b.ID, "user-sato", 3)
	require.NoError(t, err)

	final, err := tripRepo.GetByID(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, before.BookedSeats, final.BookedSeats)
}
