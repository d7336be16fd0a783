package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-travel-booking/internal/domain/booking"
	"github.com/sanosuguru/go-travel-booking/internal/domain/transaction"
)

type bookingRow struct {
	ID              string    `db:"id"`
	TripID          string    `db:"trip_id"`
	UserID          string    `db:"user_id"`
	ContactName     string    `db:"contact_name"`
	ContactEmail    string    `db:"contact_email"`
	ContactPhone    *string   `db:"contact_phone"`
	ContactLocation string    `db:"contact_location"`
	Seats           int       `db:"seats"`
	PaymentStatus   string    `db:"payment_status"`
	Status          string    `db:"status"`
	TotalAmount     int       `db:"total_amount"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	b := &booking.Booking{
		ID:     r.ID,
		TripID: r.TripID,
		UserID: r.UserID,
		Contact: booking.Contact{
			Name:     r.ContactName,
			Email:    r.ContactEmail,
			Location: r.ContactLocation,
		},
		Seats:         r.Seats,
		PaymentStatus: booking.PaymentStatus(r.PaymentStatus),
		Status:        booking.Status(r.Status),
		TotalAmount:   r.TotalAmount,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.ContactPhone != nil {
		b.Contact.Phone = *r.ContactPhone
	}
	return b
}

const bookingColumns = `id, trip_id, user_id, contact_name, contact_email, contact_phone, contact_location, seats, payment_status, status, total_amount, created_at, updated_at`

// BookingRepository は予約リポジトリのPostgreSQL実装
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository はBookingRepositoryを作成する
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create は新しい予約を作成する（トランザクション必須）
func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("不明なトランザクション型です")
	}
	query := `
		INSERT INTO bookings (trip_id, user_id, contact_name, contact_email, contact_phone, contact_location, seats, payment_status, status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	var phone *string
	if b.Contact.Phone != "" {
		phone = &b.Contact.Phone
	}
	err := sqlxTx.QueryRowContext(ctx, query,
		b.TripID, b.UserID, b.Contact.Name, b.Contact.Email, phone, b.Contact.Location,
		b.Seats, string(b.PaymentStatus), string(b.Status), b.TotalAmount, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		return wrapRetryable("予約作成に失敗しました", err)
	}
	return nil
}

// GetByID はIDから予約を取得する
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var row bookingRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// GetByUserID はユーザーの有効な予約一覧を作成日時の降順で取得する
func (r *BookingRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 AND status = 'active' ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗しました: %w", err)
	}
	return toEntities(rows), nil
}

// GetByTripID はツアーの有効な予約一覧を取得する
func (r *BookingRepository) GetByTripID(ctx context.Context, tripID string, limit, offset int) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE trip_id = $1 AND status = 'active' ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, tripID, limit, offset); err != nil {
		return nil, fmt.Errorf("ツアー予約一覧取得に失敗しました: %w", err)
	}
	return toEntities(rows), nil
}

// Update は予約を更新する（トランザクション必須）
func (r *BookingRepository) Update(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("不明なトランザクション型です")
	}
	query := `
		UPDATE bookings
		SET contact_name = $1, contact_email = $2, contact_phone = $3, contact_location = $4,
		    seats = $5, payment_status = $6, status = $7, total_amount = $8, updated_at = $9
		WHERE id = $10
	`
	var phone *string
	if b.Contact.Phone != "" {
		phone = &b.Contact.Phone
	}
	result, err := sqlxTx.ExecContext(ctx, query,
		b.Contact.Name, b.Contact.Email, phone, b.Contact.Location,
		b.Seats, string(b.PaymentStatus), string(b.Status), b.TotalAmount, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return wrapRetryable("予約更新に失敗しました", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

// UpdatePayment は決済状態のみを更新する
func (r *BookingRepository) UpdatePayment(ctx context.Context, b *booking.Booking) error {
	query := `UPDATE bookings SET payment_status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, string(b.PaymentStatus), b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("決済状態の更新に失敗しました: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

// CountActiveByTripID はツアーの有効な予約件数を取得する
func (r *BookingRepository) CountActiveByTripID(ctx context.Context, tripID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM bookings WHERE trip_id = $1 AND status = 'active'`, tripID)
	if err != nil {
		return 0, fmt.Errorf("予約件数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// SumActiveSeatsByTripID はツアーの有効予約の座席数合計を取得する
func (r *BookingRepository) SumActiveSeatsByTripID(ctx context.Context, tripID string) (int, error) {
	var sum int
	err := r.db.GetContext(ctx, &sum, `SELECT COALESCE(SUM(seats), 0) FROM bookings WHERE trip_id = $1 AND status = 'active'`, tripID)
	if err != nil {
		return 0, fmt.Errorf("座席数合計の取得に失敗しました: %w", err)
	}
	return sum, nil
}

func toEntities(rows []bookingRow) []*booking.Booking {
	bookings := make([]*booking.Booking, len(rows))
	for i := range rows {
		bookings[i] = rows[i].toEntity()
	}
	return bookings
}

var _ booking.Repository = (*BookingRepository)(nil)
