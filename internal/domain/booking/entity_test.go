package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContact() Contact {
	return Contact{
		Name:     "山田太郎",
		Email:    "taro@example.com",
		Phone:    "090-1234-5678",
		Location: "東京",
	}
}

func TestNewBooking(t *testing.T) {
	// Act
	b := NewBooking("trip-1", "user-1", testContact(), 3, 15000)

	// Assert
	assert.Equal(t, "trip-1", b.TripID)
	assert.Equal(t, "user-1", b.UserID)
	assert.Equal(t, 3, b.Seats)
	assert.Equal(t, 45000, b.TotalAmount)
	assert.Equal(t, PaymentPending, b.PaymentStatus)
	assert.Equal(t, StatusActive, b.Status)
	assert.True(t, b.IsActive())
	assert.True(t, b.IsOwnedBy("user-1"))
	assert.False(t, b.IsOwnedBy("user-2"))
}

func TestBooking_ChangeSeats(t *testing.T) {
	t.Run("座席数変更で合計金額が再計算される", func(t *testing.T) {
		b := NewBooking("trip-1", "user-1", testContact(), 2, 10000)

		err := b.ChangeSeats(5, 10000)

		require.NoError(t, err)
		assert.Equal(t, 5, b.Seats)
		assert.Equal(t, 50000, b.TotalAmount)
	})

	t.Run("0席への変更は拒否される", func(t *testing.T) {
		b := NewBooking("trip-1", "user-1", testContact(), 2, 10000)

		err := b.ChangeSeats(0, 10000)

		assert.ErrorIs(t, err, ErrInvalidSeats)
	})

	t.Run("キャンセル済み予約は変更できない", func(t *testing.T) {
		b := NewBooking("trip-1", "user-1", testContact(), 2, 10000)
		require.NoError(t, b.Cancel())

		err := b.ChangeSeats(3, 10000)

		assert.ErrorIs(t, err, ErrBookingCancelled)
	})
}

func TestBooking_Cancel(t *testing.T) {
	t.Run("有効な予約をキャンセルできる", func(t *testing.T) {
		b := NewBooking("trip-1", "user-1", testContact(), 2, 10000)

		err := b.Cancel()

		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, b.Status)
		assert.False(t, b.IsActive())
	})

	t.Run("二重キャンセルはエラー", func(t *testing.T) {
		b := NewBooking("trip-1", "user-1", testContact(), 2, 10000)
		require.NoError(t, b.Cancel())

		err := b.Cancel()

		assert.ErrorIs(t, err, ErrBookingAlreadyCancelled)
	})
}

func TestBooking_MarkPayment(t *testing.T) {
	tests := []struct {
		name        string
		from        PaymentStatus
		to          PaymentStatus
		expectedErr error
	}{
		{name: "pending→completed", from: PaymentPending, to: PaymentCompleted, expectedErr: nil},
		{name: "pending→failed", from: PaymentPending, to: PaymentFailed, expectedErr: nil},
		{name: "completedは終端", from: PaymentCompleted, to: PaymentFailed, expectedErr: ErrPaymentAlreadyFinal},
		{name: "failedは終端", from: PaymentFailed, to: PaymentCompleted, expectedErr: ErrPaymentAlreadyFinal},
		{name: "completedの再設定も不可", from: PaymentCompleted, to: PaymentCompleted, expectedErr: ErrPaymentAlreadyFinal},
		{name: "pendingへの遷移は不正", from: PaymentPending, to: PaymentPending, expectedErr: ErrInvalidPaymentStatus},
		{name: "未知のステータスは不正", from: PaymentPending, to: PaymentStatus("refunded"), expectedErr: ErrInvalidPaymentStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBooking("trip-1", "user-1", testContact(), 1, 10000)
			b.PaymentStatus = tt.from

			err := b.MarkPayment(tt.to)

			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Equal(t, tt.from, b.PaymentStatus)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.to, b.PaymentStatus)
			}
		})
	}
}

func TestBooking_Validate(t *testing.T) {
	valid := func() *Booking {
		return NewBooking("trip-1", "user-1", testContact(), 2, 10000)
	}

	tests := []struct {
		name        string
		mutate      func(*Booking)
		expectedErr error
	}{
		{name: "有効な予約", mutate: func(*Booking) {}, expectedErr: nil},
		{name: "ツアーIDが空", mutate: func(b *Booking) { b.TripID = "" }, expectedErr: ErrTripIDRequired},
		{name: "ユーザーIDが空", mutate: func(b *Booking) { b.UserID = "" }, expectedErr: ErrUserIDRequired},
		{name: "席数が0", mutate: func(b *Booking) { b.Seats = 0 }, expectedErr: ErrInvalidSeats},
		{name: "連絡先氏名が空", mutate: func(b *Booking) { b.Contact.Name = "" }, expectedErr: ErrContactNameRequired},
		{name: "連絡先メールが空", mutate: func(b *Booking) { b.Contact.Email = "" }, expectedErr: ErrContactEmailRequired},
		{name: "連絡先所在地が空", mutate: func(b *Booking) { b.Contact.Location = "" }, expectedErr: ErrContactLocationRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid()
			tt.mutate(b)
			err := b.Validate()
			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
