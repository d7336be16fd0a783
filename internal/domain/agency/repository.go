package agency

import "context"

// Repository は代理店リポジトリのインターフェース
type Repository interface {
	// Create は新しい代理店を作成する
	Create(ctx context.Context, agency *Agency) error

	// GetByID はIDから代理店を取得する
	GetByID(ctx context.Context, id string) (*Agency, error)

	// GetByOwnerID は所有ユーザーIDから代理店を取得する
	GetByOwnerID(ctx context.Context, ownerID string) (*Agency, error)

	// Update は代理店を更新する
	Update(ctx context.Context, agency *Agency) error
}
