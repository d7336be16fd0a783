package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-travel-booking/internal/application"
	"github.com/sanosuguru/go-travel-booking/internal/domain/agency"
	"github.com/sanosuguru/go-travel-booking/internal/domain/trip"
)

type TripHandler struct {
	tripService TripServiceInterface
}

func NewTripHandler(tripService TripServiceInterface) *TripHandler {
	return &TripHandler{tripService: tripService}
}

type CreateTripRequest struct {
	AgencyID       string `json:"agency_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	Description    string `json:"description" validate:"required" example:"屋久島トレッキング3日間"`
	Location       string `json:"location" validate:"required" example:"屋久島"`
	DeparturePoint string `json:"departure_point" example:"鹿児島港"`
	DepartAt       string `json:"depart_at" validate:"required,departure" example:"2026-10-01T08:00:00+09:00"`
	PricePerSeat   int    `json:"price_per_seat" validate:"gte=0" example:"42000"`
	TotalSeats     int    `json:"total_seats" validate:"required,gt=0" example:"16"`
}

type UpdateTripRequest struct {
	Description    string `json:"description" validate:"required"`
	Location       string `json:"location" validate:"required"`
	DeparturePoint string `json:"departure_point"`
	DepartAt       string `json:"depart_at" validate:"required,departure"`
	PricePerSeat   int    `json:"price_per_seat" validate:"gte=0"`
}

type TripResponse struct {
	ID             string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	AgencyID       string `json:"agency_id"`
	Description    string `json:"description" example:"屋久島トレッキング3日間"`
	Location       string `json:"location" example:"屋久島"`
	DeparturePoint string `json:"departure_point,omitempty" example:"鹿児島港"`
	DepartAt       string `json:"depart_at,omitempty" example:"2026-10-01T08:00:00+09:00"`
	PricePerSeat   int    `json:"price_per_seat" example:"42000"`
	TotalSeats     int    `json:"total_seats" example:"16"`
	BookedSeats    int    `json:"booked_seats" example:"4"`
	AvailableSeats int    `json:"available_seats" example:"12"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func toTripResponse(t *trip.Trip) *TripResponse {
	resp := &TripResponse{
		ID:             t.ID,
		AgencyID:       t.AgencyID,
		Description:    t.Description,
		Location:       t.Location,
		DeparturePoint: t.DeparturePoint,
		PricePerSeat:   t.PricePerSeat,
		TotalSeats:     t.TotalSeats,
		BookedSeats:    t.BookedSeats,
		AvailableSeats: t.AvailableSeats(),
		CreatedAt:      t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      t.UpdatedAt.Format(time.RFC3339),
	}
	if !t.DepartAt.IsZero() {
		resp.DepartAt = t.DepartAt.Format(time.RFC3339)
	}
	return resp
}

// Create godoc
// @Summary ツアーを作成
// @Description 代理店のツアーを作成します。座席数は作成時に固定されます
// @Tags trips
// @Accept json
// @Produce json
// @Param request body CreateTripRequest true "ツアー情報"
// @Success 201 {object} TripResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /trips [post]
func (h *TripHandler) Create(c echo.Context) error {
	var req CreateTripRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	t, err := h.tripService.CreateTrip(c.Request().Context(), application.CreateTripInput{
		AgencyID:       req.AgencyID,
		Description:    req.Description,
		Location:       req.Location,
		DeparturePoint: req.DeparturePoint,
		DepartAt:       req.DepartAt,
		PricePerSeat:   req.PricePerSeat,
		TotalSeats:     req.TotalSeats,
	})
	if err != nil {
		if errors.Is(err, agency.ErrAgencyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		if errors.Is(err, trip.ErrInvalidDepartAt) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, toTripResponse(t))
}

// GetByID godoc
// @Summary ツアーを取得
// @Tags trips
// @Produce json
// @Param id path string true "ツアーID"
// @Success 200 {object} TripResponse
// @Failure 404 {object} map[string]string
// @Router /trips/{id} [get]
func (h *TripHandler) GetByID(c echo.Context) error {
	t, err := h.tripService.GetTrip(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, trip.ErrTripNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toTripResponse(t))
}

// List godoc
// @Summary ツアー一覧を取得
// @Tags trips
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Param agency_id query string false "代理店ID"
// @Success 200 {array} TripResponse
// @Router /trips [get]
func (h *TripHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	var (
		trips []*trip.Trip
		err   error
	)
	if agencyID := c.QueryParam("agency_id"); agencyID != "" {
		trips, err = h.tripService.ListAgencyTrips(c.Request().Context(), agencyID, limit, offset)
	} else {
		trips, err = h.tripService.ListTrips(c.Request().Context(), limit, offset)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]*TripResponse, len(trips))
	for i, t := range trips {
		resp[i] = toTripResponse(t)
	}
	return c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary ツアーを更新
// @Description 表示項目のみ更新します。座席数は変更できません
// @Tags trips
// @Accept json
// @Produce json
// @Param id path string true "ツアーID"
// @Param request body UpdateTripRequest true "更新内容"
// @Success 200 {object} TripResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /trips/{id} [put]
func (h *TripHandler) Update(c echo.Context) error {
	var req UpdateTripRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	t, err := h.tripService.UpdateTrip(c.Request().Context(), application.UpdateTripInput{
		ID:             c.Param("id"),
		Description:    req.Description,
		Location:       req.Location,
		DeparturePoint: req.DeparturePoint,
		DepartAt:       req.DepartAt,
		PricePerSeat:   req.PricePerSeat,
	})
	if err != nil {
		if errors.Is(err, trip.ErrTripNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, toTripResponse(t))
}

// Delete godoc
// @Summary ツアーを削除
// @Description 有効な予約が残っている場合は削除できません
// @Tags trips
// @Param id path string true "ツアーID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /trips/{id} [delete]
func (h *TripHandler) Delete(c echo.Context) error {
	err := h.tripService.DeleteTrip(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, trip.ErrTripNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		if errors.Is(err, trip.ErrTripHasBookings) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type AvailabilityResponse struct {
	TripID         string `json:"trip_id"`
	AvailableSeats int    `json:"available_seats" example:"12"`
}

// Availability godoc
// @Summary ツアーの残席数を取得
// @Description キャッシュ経由の参考値です。予約可否の最終判定は予約作成時に行われます
// @Tags trips
// @Produce json
// @Param id path string true "ツアーID"
// @Success 200 {object} AvailabilityResponse
// @Failure 404 {object} map[string]string
// @Router /trips/{id}/availability [get]
func (h *TripHandler) Availability(c echo.Context) error {
	tripID := c.Param("id")
	count, err := h.tripService.GetAvailableSeats(c.Request().Context(), tripID)
	if err != nil {
		if errors.Is(err, trip.ErrTripNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{TripID: tripID, AvailableSeats: count})
}
