package middleware

import (
	"crypto/subtle"
	"os"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// MetricsBasicAuth は/metricsエンドポイントをBasic認証で保護するミドルウェア。
// METRICS_USER / METRICS_PASSWORD が未設定の場合は認証をスキップする（開発環境向け）。
func MetricsBasicAuth() echo.MiddlewareFunc {
	user := os.Getenv("METRICS_USER")
	password := os.Getenv("METRICS_PASSWORD")

	if user == "" || password == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	return echomiddleware.BasicAuth(func(u, p string, c echo.Context) (bool, error) {
		userMatch := subtle.ConstantTimeCompare([]byte(u), []byte(user)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(p), []byte(password)) == 1
		return userMatch && passMatch, nil
	})
}
