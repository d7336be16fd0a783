package agency

import "errors"

// Agency ドメインのエラー定義
var (
	ErrAgencyNotFound      = errors.New("代理店が見つかりません")
	ErrAgencyAlreadyExists = errors.New("このユーザーの代理店は既に登録されています")
	ErrOwnerIDRequired     = errors.New("所有者IDは必須です")
	ErrNameRequired        = errors.New("代理店名は必須です")
	ErrEmailRequired       = errors.New("メールアドレスは必須です")
)
