package trip

import "time"

// Trip は代理店が提供する出発便（ツアー）エンティティを表す
type Trip struct {
	ID             string
	AgencyID       string
	Description    string
	Location       string
	DeparturePoint string
	DepartAt       time.Time
	PricePerSeat   int
	TotalSeats     int
	BookedSeats    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int // 楽観的ロック用
}

// NewTrip は新しいツアーを作成する
// 座席数は作成時に固定され、以降は変更されない
func NewTrip(agencyID, description, location, departurePoint string, departAt time.Time, pricePerSeat, totalSeats int) *Trip {
	now := time.Now()
	return &Trip{
		AgencyID:       agencyID,
		Description:    description,
		Location:       location,
		DeparturePoint: departurePoint,
		DepartAt:       departAt,
		PricePerSeat:   pricePerSeat,
		TotalSeats:     totalSeats,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        0,
	}
}

// AvailableSeats は残り座席数を返す
// ゼロ値の座席フィールドは 0 として扱われ、結果が負になることはない
func (t *Trip) AvailableSeats() int {
	available := t.TotalSeats - t.BookedSeats
	if available < 0 {
		return 0
	}
	return available
}

// CanBook は指定席数を予約できるかを返す
func (t *Trip) CanBook(seats int) bool {
	return seats > 0 && seats <= t.AvailableSeats()
}

// Validate はツアーの検証を行う
func (t *Trip) Validate() error {
	if t.AgencyID == "" {
		return ErrAgencyIDRequired
	}
	if t.Description == "" {
		return ErrDescriptionRequired
	}
	if t.Location == "" {
		return ErrLocationRequired
	}
	if t.DepartAt.IsZero() {
		return ErrDepartAtRequired
	}
	if t.PricePerSeat < 0 {
		return ErrInvalidPrice
	}
	if t.TotalSeats < 0 {
		return ErrInvalidTotalSeats
	}
	if t.BookedSeats < 0 || t.BookedSeats > t.TotalSeats {
		return ErrInvalidBookedSeats
	}
	return nil
}
