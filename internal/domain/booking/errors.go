package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound         = errors.New("予約が見つかりません")
	ErrBookingNotOwned         = errors.New("予約の所有者ではありません")
	ErrBookingCancelled        = errors.New("キャンセル済みの予約は変更できません")
	ErrBookingAlreadyCancelled = errors.New("予約は既にキャンセルされています")
	ErrPaymentAlreadyFinal     = errors.New("決済状態は既に確定しています")
	ErrInvalidPaymentStatus    = errors.New("無効な決済状態です")
	ErrTripIDRequired          = errors.New("ツアーIDは必須です")
	ErrUserIDRequired          = errors.New("ユーザーIDは必須です")
	ErrInvalidSeats            = errors.New("座席数は1以上である必要があります")
	ErrContactNameRequired     = errors.New("予約者名は必須です")
	ErrContactEmailRequired    = errors.New("メールアドレスは必須です")
	ErrContactLocationRequired = errors.New("所在地は必須です")
)
