package trip

import (
	"strconv"
	"strings"
	"time"
)

// 過去のデータに混在する出発日時の表現形式
// 取り込み境界で一度だけ正規化し、以降は time.Time のみを扱う
var departureLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseDepartureTime は複数の歴史的形式で表現された出発日時を正規化する
// 対応形式: RFC3339 / 日付のみ / エポック秒 / エポックミリ秒
func ParseDepartureTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrDepartAtRequired
	}

	for _, layout := range departureLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		// 13桁以上はミリ秒、それ以外は秒として解釈する
		if len(strings.TrimPrefix(raw, "-")) >= 13 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	return time.Time{}, ErrInvalidDepartAt
}
