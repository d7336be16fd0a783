package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-travel-booking/internal/application"
	"github.com/sanosuguru/go-travel-booking/internal/domain/agency"
)

type AgencyHandler struct {
	agencyService AgencyServiceInterface
}

func NewAgencyHandler(as AgencyServiceInterface) *AgencyHandler {
	return &AgencyHandler{agencyService: as}
}

type CreateAgencyRequest struct {
	Name     string `json:"name" validate:"required" example:"南国トラベル"`
	Email    string `json:"email" validate:"required,email" example:"info@nangoku-travel.example"`
	Phone    string `json:"phone" example:"099-123-4567"`
	Location string `json:"location" example:"鹿児島市"`
}

type UpdateAgencyRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

type AgencyResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name" example:"南国トラベル"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Location  string `json:"location,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toAgencyResponse(a *agency.Agency) AgencyResponse {
	return AgencyResponse{
		ID:        a.ID,
		OwnerID:   a.OwnerID,
		Name:      a.Name,
		Email:     a.Email,
		Phone:     a.Phone,
		Location:  a.Location,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

// Create godoc
// @Summary 代理店を登録
// @Description ログインユーザーを所有者として代理店を登録します（1ユーザー1代理店）
// @Tags agencies
// @Accept json
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param request body CreateAgencyRequest true "代理店情報"
// @Success 201 {object} AgencyResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /agencies [post]
func (h *AgencyHandler) Create(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	var req CreateAgencyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	a, err := h.agencyService.CreateAgency(c.Request().Context(), application.CreateAgencyInput{
		OwnerID:  userID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Location: req.Location,
	})
	if err != nil {
		if errors.Is(err, agency.ErrAgencyAlreadyExists) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, toAgencyResponse(a))
}

// GetByID godoc
// @Summary 代理店を取得
// @Tags agencies
// @Produce json
// @Param id path string true "代理店ID"
// @Success 200 {object} AgencyResponse
// @Failure 404 {object} map[string]string
// @Router /agencies/{id} [get]
func (h *AgencyHandler) GetByID(c echo.Context) error {
	a, err := h.agencyService.GetAgency(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, agency.ErrAgencyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toAgencyResponse(a))
}

// GetMine godoc
// @Summary 自分の代理店を取得
// @Tags agencies
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Success 200 {object} AgencyResponse
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /agencies/me [get]
func (h *AgencyHandler) GetMine(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	a, err := h.agencyService.GetAgencyByOwner(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, agency.ErrAgencyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toAgencyResponse(a))
}

// Update godoc
// @Summary 代理店を更新
// @Tags agencies
// @Accept json
// @Produce json
// @Param id path string true "代理店ID"
// @Param request body UpdateAgencyRequest true "更新内容"
// @Success 200 {object} AgencyResponse
// @Failure 404 {object} map[string]string
// @Router /agencies/{id} [put]
func (h *AgencyHandler) Update(c echo.Context) error {
	var req UpdateAgencyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	a, err := h.agencyService.UpdateAgency(c.Request().Context(), application.UpdateAgencyInput{
		ID:       c.Param("id"),
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Location: req.Location,
	})
	if err != nil {
		if errors.Is(err, agency.ErrAgencyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, toAgencyResponse(a))
}
