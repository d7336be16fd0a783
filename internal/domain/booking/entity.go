package booking

import "time"

// PaymentStatus は決済の状態を表す
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Status は予約の状態を表す
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Contact は予約者の連絡先を表す
type Contact struct {
	Name     string
	Email    string
	Phone    string
	Location string
}

// Booking は旅行者による座席予約エンティティを表す
type Booking struct {
	ID            string
	TripID        string
	UserID        string
	Contact       Contact
	Seats         int
	PaymentStatus PaymentStatus
	Status        Status
	TotalAmount   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewBooking は新しい予約を作成する
// 合計金額は予約時点の座席単価から算出される
func NewBooking(tripID, userID string, contact Contact, seats, pricePerSeat int) *Booking {
	now := time.Now()
	return &Booking{
		TripID:        tripID,
		UserID:        userID,
		Contact:       contact,
		Seats:         seats,
		PaymentStatus: PaymentPending,
		Status:        StatusActive,
		TotalAmount:   seats * pricePerSeat,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsActive は予約が有効かを返す
func (b *Booking) IsActive() bool {
	return b.Status == StatusActive
}

// IsOwnedBy は予約の所有者かを返す
func (b *Booking) IsOwnedBy(userID string) bool {
	return b.UserID == userID
}

// ChangeSeats は座席数を変更し、合計金額を再計算する
func (b *Booking) ChangeSeats(seats, pricePerSeat int) error {
	if seats <= 0 {
		return ErrInvalidSeats
	}
	if b.Status != StatusActive {
		return ErrBookingCancelled
	}
	b.Seats = seats
	b.TotalAmount = seats * pricePerSeat
	b.UpdatedAt = time.Now()
	return nil
}

// Cancel は予約をキャンセルする
func (b *Booking) Cancel() error {
	if b.Status == StatusCancelled {
		return ErrBookingAlreadyCancelled
	}
	b.Status = StatusCancelled
	b.UpdatedAt = time.Now()
	return nil
}

// MarkPayment は決済結果を記録する
// pending からのみ遷移でき、completed / failed は終端状態
func (b *Booking) MarkPayment(status PaymentStatus) error {
	if status != PaymentCompleted && status != PaymentFailed {
		return ErrInvalidPaymentStatus
	}
	if b.PaymentStatus != PaymentPending {
		return ErrPaymentAlreadyFinal
	}
	b.PaymentStatus = status
	b.UpdatedAt = time.Now()
	return nil
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.TripID == "" {
		return ErrTripIDRequired
	}
	if b.UserID == "" {
		return ErrUserIDRequired
	}
	if b.Seats <= 0 {
		return ErrInvalidSeats
	}
	if b.Contact.Name == "" {
		return ErrContactNameRequired
	}
	if b.Contact.Email == "" {
		return ErrContactEmailRequired
	}
	if b.Contact.Location == "" {
		return ErrContactLocationRequired
	}
	return nil
}
