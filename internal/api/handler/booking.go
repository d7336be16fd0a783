package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-travel-booking/internal/application"
	"github.com/sanosuguru/go-travel-booking/internal/domain/booking"
	"github.com/sanosuguru/go-travel-booking/internal/domain/transaction"
	"github.com/sanosuguru/go-travel-booking/internal/domain/trip"
)

type BookingHandler struct {
	bookingService BookingServiceInterface
	queryService   BookingQueryServiceInterface
}

func NewBookingHandler(bs BookingServiceInterface, qs BookingQueryServiceInterface) *BookingHandler {
	return &BookingHandler{bookingService: bs, queryService: qs}
}

type CreateBookingRequest struct {
	TripID          string `json:"trip_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	Seats           int    `json:"seats" validate:"required,gt=0" example:"2"`
	ContactName     string `json:"contact_name" validate:"required" example:"田中太郎"`
	ContactEmail    string `json:"contact_email" validate:"required,email" example:"tanaka@example.com"`
	ContactPhone    string `json:"contact_phone" example:"090-1234-5678"`
	ContactLocation string `json:"contact_location" validate:"required" example:"東京都"`
}

type UpdateBookingSeatsRequest struct {
	Seats int `json:"seats" validate:"required,gt=0" example:"3"`
}

type MarkPaymentRequest struct {
	Status string `json:"status" validate:"required,oneof=completed failed" example:"completed"`
}

type BookingResponse struct {
	ID              string `json:"id"`
	TripID          string `json:"trip_id"`
	UserID          string `json:"user_id"`
	ContactName     string `json:"contact_name"`
	ContactEmail    string `json:"contact_email"`
	ContactPhone    string `json:"contact_phone,omitempty"`
	ContactLocation string `json:"contact_location"`
	Seats           int    `json:"seats" example:"2"`
	PaymentStatus   string `json:"payment_status" example:"pending"`
	Status          string `json:"status" example:"active"`
	TotalAmount     int    `json:"total_amount" example:"84000"`
	CreatedAt       string `json:"created_at"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		TripID:          b.TripID,
		UserID:          b.UserID,
		ContactName:     b.Contact.Name,
		ContactEmail:    b.Contact.Email,
		ContactPhone:    b.Contact.Phone,
		ContactLocation: b.Contact.Location,
		Seats:           b.Seats,
		PaymentStatus:   string(b.PaymentStatus),
		Status:          string(b.Status),
		TotalAmount:     b.TotalAmount,
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
	}
}

type UserBookingViewResponse struct {
	Booking BookingResponse     `json:"booking"`
	Trip    TripSummaryResponse `json:"trip"`
}

type TripSummaryResponse struct {
	TripID       string `json:"trip_id"`
	Description  string `json:"description"`
	Location     string `json:"location,omitempty"`
	PricePerSeat int    `json:"price_per_seat"`
	DepartAt     string `json:"depart_at,omitempty"`
	Found        bool   `json:"found"`
}

func toUserBookingViewResponse(v application.UserBookingView) UserBookingViewResponse {
	summary := TripSummaryResponse{
		TripID:       v.Trip.TripID,
		Description:  v.Trip.Description,
		Location:     v.Trip.Location,
		PricePerSeat: v.Trip.PricePerSeat,
		Found:        v.Trip.Found,
	}
	if !v.Trip.DepartAt.IsZero() {
		summary.DepartAt = v.Trip.DepartAt.Format(time.RFC3339)
	}
	return UserBookingViewResponse{
		Booking: toBookingResponse(v.Booking),
		Trip:    summary,
	}
}

// requireUserID は認証基盤が付与した利用者識別子を取り出す
// 識別子は外部の認証サービスで検証済みとして信頼する
func requireUserID(c echo.Context) (string, error) {
	userID := c.Request().Header.Get("X-User-ID")
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	return userID, nil
}

// Create godoc
// @Summary 予約を作成
// @Description 座席を予約します。残席の検証と確保は原子的に行われます
// @Tags bookings
// @Accept json
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param request body CreateBookingRequest true "予約情報"
// @Success 201 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "残席不足または競合"
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.bookingService.CreateBooking(c.Request().Context(), application.CreateBookingInput{
		TripID: req.TripID,
		UserID: userID,
		Contact: booking.Contact{
			Name:     req.ContactName,
			Email:    req.ContactEmail,
			Phone:    req.ContactPhone,
			Location: req.ContactLocation,
		},
		Seats: req.Seats,
	})
	if err != nil {
		return bookingErrorToHTTP(err)
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// GetByID godoc
// @Summary 予約を取得
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} map[string]string
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(c echo.Context) error {
	b, err := h.bookingService.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// ListForUser godoc
// @Summary 自分の予約一覧を取得
// @Description ツアーの表示項目を結合した予約一覧を新しい順に返します
// @Tags bookings
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} UserBookingViewResponse
// @Failure 401 {object} map[string]string
// @Router /bookings [get]
func (h *BookingHandler) ListForUser(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	views, err := h.queryService.ListUserBookings(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]UserBookingViewResponse, len(views))
	for i, v := range views {
		resp[i] = toUserBookingViewResponse(v)
	}
	return c.JSON(http.StatusOK, resp)
}

// ListForTrip godoc
// @Summary ツアーの予約一覧を取得
// @Description 代理店・管理者向け。連絡先は予約に埋め込まれています
// @Tags bookings
// @Produce json
// @Param id path string true "ツアーID"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookingResponse
// @Router /trips/{id}/bookings [get]
func (h *BookingHandler) ListForTrip(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	bookings, err := h.queryService.ListTripBookings(c.Request().Context(), c.Param("id"), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// UpdateSeats godoc
// @Summary 予約の座席数を変更
// @Description 増席時は残席を再検証し、減席は常に成功します。補償はカウンタに原子的に適用されます
// @Tags bookings
// @Accept json
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param id path string true "予約ID"
// @Param request body UpdateBookingSeatsRequest true "新しい座席数"
// @Success 200 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /bookings/{id}/seats [patch]
func (h *BookingHandler) UpdateSeats(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	var req UpdateBookingSeatsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.bookingService.UpdateBookingSeats(c.Request().Context(), c.Param("id"), userID, req.Seats)
	if err != nil {
		return bookingErrorToHTTP(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description 予約をキャンセルし、座席カウンタを補償減算します
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c echo.Context) error {
	b, err := h.bookingService.CancelBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return bookingErrorToHTTP(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// MarkPayment godoc
// @Summary 決済結果を記録
// @Description pending の予約に completed / failed を記録します（終端状態）
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path string true "予約ID"
// @Param request body MarkPaymentRequest true "決済結果"
// @Success 200 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /bookings/{id}/payment [post]
func (h *BookingHandler) MarkPayment(c echo.Context) error {
	var req MarkPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.bookingService.MarkPaymentResult(c.Request().Context(), c.Param("id"), booking.PaymentStatus(req.Status))
	if err != nil {
		if errors.Is(err, booking.ErrPaymentAlreadyFinal) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return bookingErrorToHTTP(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// bookingErrorToHTTP は予約操作のドメインエラーをHTTPエラーに変換する
func bookingErrorToHTTP(err error) error {
	switch {
	case errors.Is(err, trip.ErrTripNotFound), errors.Is(err, booking.ErrBookingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrBookingNotOwned):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, trip.ErrInsufficientSeats):
		// 棄却時点の実際の残席数を含むメッセージをそのまま返す
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, transaction.ErrContention):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrBookingCancelled), errors.Is(err, booking.ErrBookingAlreadyCancelled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case isBookingValidationError(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		// ドメインで分類できないエラーはストア障害
		// 入力の問題ではないため4xxにはしない。操作が適用されたかは保証されない
		return echo.NewHTTPError(http.StatusServiceUnavailable, "ストアが利用できないため処理を完了できませんでした").SetInternal(err)
	}
}

// isBookingValidationError は入力検証に起因するドメインエラーかを判定する
func isBookingValidationError(err error) bool {
	validationErrs := []error{
		booking.ErrInvalidSeats,
		booking.ErrTripIDRequired,
		booking.ErrUserIDRequired,
		booking.ErrContactNameRequired,
		booking.ErrContactEmailRequired,
		booking.ErrContactLocationRequired,
		booking.ErrInvalidPaymentStatus,
	}
	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
