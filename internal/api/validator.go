package api

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-travel-booking/internal/domain/trip"
)

// CustomValidator はEcho用のカスタムバリデーター
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator は新しいバリデーターを作成する
// 出発日時には旧形式を含む複数フォーマットを受け付ける departure ルールを登録する
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("departure", func(fl validator.FieldLevel) bool {
		_, err := trip.ParseDepartureTime(fl.Field().String())
		return err == nil
	})
	return &CustomValidator{validator: v}
}

// Validate はリクエストのバリデーションを実行する
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(400, err.Error())
	}
	return nil
}
