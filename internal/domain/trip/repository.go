package trip

import (
	"context"
	"time"

	"github.com/sanosuguru/go-travel-booking/internal/domain/transaction"
)

// LegacyDeparture は正規化前の出発日時を持つツアー行を表す
type LegacyDeparture struct {
	TripID string
	Raw    string
}

// Repository はツアーリポジトリのインターフェース
type Repository interface {
	// Create は新しいツアーを作成する
	Create(ctx context.Context, trip *Trip) error

	// GetByID はIDからツアーを取得する
	GetByID(ctx context.Context, id string) (*Trip, error)

	// GetByIDs は複数IDからツアーを一括取得する（存在しないIDは結果に含まれない）
	GetByIDs(ctx context.Context, ids []string) (map[string]*Trip, error)

	// List はツアー一覧を出発日時順で取得する
	List(ctx context.Context, limit, offset int) ([]*Trip, error)

	// GetByAgencyID は代理店のツアー一覧を取得する
	GetByAgencyID(ctx context.Context, agencyID string, limit, offset int) ([]*Trip, error)

	// Update はツアーの表示項目を更新する（楽観的ロック、座席数には触れない）
	Update(ctx context.Context, trip *Trip) error

	// Delete はツアーを削除する
	Delete(ctx context.Context, id string) error

	// ApplySeatDelta は予約済み座席数を条件付きで増減する（トランザクション必須）
	// booked_seats + delta が 0 以上かつ total_seats 以下の場合のみ成功する
	// 条件を満たさない場合や行が存在しない場合は false を返す
	ApplySeatDelta(ctx context.Context, tx transaction.Tx, tripID string, delta int) (bool, error)

	// GetForShare はトランザクション内でツアーを取得する（失敗理由の判別用）
	GetForShare(ctx context.Context, tx transaction.Tx, id string) (*Trip, error)

	// ListLegacyDepartures は depart_at 未設定かつ旧形式の日時文字列を持つ行を取得する
	ListLegacyDepartures(ctx context.Context, limit int) ([]LegacyDeparture, error)

	// SetDepartAt は正規化済みの出発日時を書き戻す（冪等）
	SetDepartAt(ctx context.Context, tripID string, departAt time.Time) error
}
