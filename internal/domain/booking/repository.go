package booking

import (
	"context"

	"github.com/sanosuguru/go-travel-booking/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, booking *Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// GetByUserID はユーザーの有効な予約一覧を作成日時の降順で取得する
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*Booking, error)

	// GetByTripID はツアーの有効な予約一覧を取得する
	GetByTripID(ctx context.Context, tripID string, limit, offset int) ([]*Booking, error)

	// Update は予約を更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, booking *Booking) error

	// UpdatePayment は決済状態のみを更新する
	UpdatePayment(ctx context.Context, booking *Booking) error

	// CountActiveByTripID はツアーの有効な予約件数を取得する
	CountActiveByTripID(ctx context.Context, tripID string) (int, error)

	// SumActiveSeatsByTripID はツアーの有効予約の座席数合計を取得する
	// booked_seats カウンタとの整合性検証に使用する
	SumActiveSeatsByTripID(ctx context.Context, tripID string) (int, error)
}
