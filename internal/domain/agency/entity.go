package agency

import "time"

// Agency はツアーを提供する旅行代理店エンティティを表す
type Agency struct {
	ID        string
	OwnerID   string // 代理店を所有するユーザーID（外部認証基盤の識別子）
	Name      string
	Email     string
	Phone     string
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAgency は新しい代理店を作成する
func NewAgency(ownerID, name, email, phone, location string) *Agency {
	now := time.Now()
	return &Agency{
		OwnerID:   ownerID,
		Name:      name,
		Email:     email,
		Phone:     phone,
		Location:  location,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate は代理店の検証を行う
func (a *Agency) Validate() error {
	if a.OwnerID == "" {
		return ErrOwnerIDRequired
	}
	if a.Name == "" {
		return ErrNameRequired
	}
	if a.Email == "" {
		return ErrEmailRequired
	}
	return nil
}
