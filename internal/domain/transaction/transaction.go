package transaction

import (
	"context"
	"errors"
)

// ErrContention はストア側の書き込み競合を表す
// 呼び出し側は限定回数のリトライ後に利用者へ返す
var ErrContention = errors.New("競合が発生したため処理を完了できませんでした")

// Tx はストアのトランザクションを表すインターフェース
// 予約の書き込みと座席カウンタの更新を単一の原子的単位にまとめるために使う
// ドメイン層がインフラ層（sqlx等）に依存しないための抽象化
type Tx interface {
	// Commit はトランザクションをコミットする
	Commit() error
	// Rollback はトランザクションをロールバックする
	Rollback() error
}

// Manager はトランザクションを管理するインターフェース
type Manager interface {
	// Begin は新しいトランザクションを開始する
	Begin(ctx context.Context) (Tx, error)
}
