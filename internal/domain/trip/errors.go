package trip

import "errors"

// Trip ドメインのエラー定義
var (
	ErrTripNotFound        = errors.New("ツアーが見つかりません")
	ErrInsufficientSeats   = errors.New("座席数が不足しています")
	ErrTripHasBookings     = errors.New("有効な予約があるツアーは削除できません")
	ErrAgencyIDRequired    = errors.New("代理店IDは必須です")
	ErrDescriptionRequired = errors.New("ツアー説明は必須です")
	ErrLocationRequired    = errors.New("目的地は必須です")
	ErrDepartAtRequired    = errors.New("出発日時は必須です")
	ErrInvalidPrice        = errors.New("座席単価は0以上である必要があります")
	ErrInvalidTotalSeats   = errors.New("座席数は0以上である必要があります")
	ErrInvalidBookedSeats  = errors.New("予約済み座席数は0以上かつ総座席数以下である必要があります")
	ErrInvalidDepartAt     = errors.New("出発日時の形式を解釈できません")
)
