package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-travel-booking/internal/domain/transaction"
	"github.com/sanosuguru/go-travel-booking/internal/domain/trip"
)

// tripRow はDBの行を表す構造体
type tripRow struct {
	ID             string     `db:"id"`
	AgencyID       string     `db:"agency_id"`
	Description    string     `db:"description"`
	Location       string     `db:"location"`
	DeparturePoint *string    `db:"departure_point"`
	DepartAt       *time.Time `db:"depart_at"`
	PricePerSeat   int        `db:"price_per_seat"`
	TotalSeats     int        `db:"total_seats"`
	BookedSeats    int        `db:"booked_seats"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
	Version        int        `db:"version"`
}

func (r *tripRow) toEntity() *trip.Trip {
	t := &trip.Trip{
		ID:           r.ID,
		AgencyID:     r.AgencyID,
		Description:  r.Description,
		Location:     r.Location,
		PricePerSeat: r.PricePerSeat,
		TotalSeats:   r.TotalSeats,
		BookedSeats:  r.BookedSeats,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		Version:      r.Version,
	}
	if r.DeparturePoint != nil {
		t.DeparturePoint = *r.DeparturePoint
	}
	if r.DepartAt != nil {
		t.DepartAt = *r.DepartAt
	}
	return t
}

const tripColumns = `id, agency_id, description, location, departure_point, depart_at, price_per_seat, total_seats, booked_seats, created_at, updated_at, version`

// TripRepository はツアーリポジトリのPostgreSQL実装
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository はTripRepositoryを作成する
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

// Create は新しいツアーを作成する
func (r *TripRepository) Create(ctx context.Context, t *trip.Trip) error {
	query := `
		INSERT INTO trips (agency_id, description, location, departure_point, depart_at, price_per_seat, total_seats, booked_seats, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	var departurePoint *string
	if t.DeparturePoint != "" {
		departurePoint = &t.DeparturePoint
	}
	var departAt *time.Time
	if !t.DepartAt.IsZero() {
		departAt = &t.DepartAt
	}

	err := r.db.QueryRowContext(ctx, query,
		t.AgencyID, t.Description, t.Location, departurePoint, departAt,
		t.PricePerSeat, t.TotalSeats, t.BookedSeats, t.CreatedAt, t.UpdatedAt, t.Version,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("ツアー作成に失敗しました: %w", err)
	}
	return nil
}

// GetByID はIDからツアーを取得する
func (r *TripRepository) GetByID(ctx context.Context, id string) (*trip.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	var row tripRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, trip.ErrTripNotFound
		}
		return nil, fmt.Errorf("ツアー取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// GetByIDs は複数IDからツアーを一括取得する
func (r *TripRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*trip.Trip, error) {
	result := make(map[string]*trip.Trip, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = ANY($1)`

	var rows []tripRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("ツアー一括取得に失敗しました: %w", err)
	}
	for i := range rows {
		result[rows[i].ID] = rows[i].toEntity()
	}
	return result, nil
}

// List はツアー一覧を出発日時順で取得する
func (r *TripRepository) List(ctx context.Context, limit, offset int) ([]*trip.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips ORDER BY depart_at DESC NULLS LAST LIMIT $1 OFFSET $2`

	var rows []tripRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("ツアー一覧取得に失敗しました: %w", err)
	}
	trips := make([]*trip.Trip, len(rows))
	for i := range rows {
		trips[i] = rows[i].toEntity()
	}
	return trips, nil
}

// GetByAgencyID は代理店のツアー一覧を取得する
func (r *TripRepository) GetByAgencyID(ctx context.Context, agencyID string, limit, offset int) ([]*trip.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE agency_id = $1 ORDER BY depart_at DESC NULLS LAST LIMIT $2 OFFSET $3`

	var rows []tripRow
	if err := r.db.SelectContext(ctx, &rows, query, agencyID, limit, offset); err != nil {
		return nil, fmt.Errorf("代理店ツアー一覧取得に失敗しました: %w", err)
	}
	trips := make([]*trip.Trip, len(rows))
	for i := range rows {
		trips[i] = rows[i].toEntity()
	}
	return trips, nil
}

// Update はツアーの表示項目を更新する（楽観的ロック）
// 座席数カウンタは ApplySeatDelta 以外から変更しない
func (r *TripRepository) Update(ctx context.Context, t *trip.Trip) error {
	query := `
		UPDATE trips
		SET description = $1, location = $2, departure_point = $3, depart_at = $4,
		    price_per_seat = $5, updated_at = $6, version = version + 1
		WHERE id = $7 AND version = $8
	`
	var departurePoint *string
	if t.DeparturePoint != "" {
		departurePoint = &t.DeparturePoint
	}
	var departAt *time.Time
	if !t.DepartAt.IsZero() {
		departAt = &t.DepartAt
	}

	result, err := r.db.ExecContext(ctx, query,
		t.Description, t.Location, departurePoint, departAt, t.PricePerSeat, time.Now(), t.ID, t.Version,
	)
	if err != nil {
		return wrapRetryable("ツアー更新に失敗しました", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		// 行が存在しないかバージョン不一致
		if _, err := r.GetByID(ctx, t.ID); err != nil {
			return err
		}
		return transaction.ErrContention
	}

	t.Version++
	return nil
}

// Delete はツアーを削除する
func (r *TripRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ツアー削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の確認に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return trip.ErrTripNotFound
	}
	return nil
}

// ApplySeatDelta は予約済み座席数を条件付きで増減する
// 条件付きUPDATEにより、読み取り時点の値が陳腐化していても
// 天井（total_seats）と床（0）を超える更新は決してコミットされない
func (r *TripRepository) ApplySeatDelta(ctx context.Context, tx transaction.Tx, tripID string, delta int) (bool, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return false, fmt.Errorf("不明なトランザクション型です")
	}
	query := `
		UPDATE trips
		SET booked_seats = booked_seats + $1, updated_at = NOW(), version = version + 1
		WHERE id = $2
		  AND booked_seats + $1 >= 0
		  AND booked_seats + $1 <= total_seats
	`
	result, err := sqlxTx.ExecContext(ctx, query, delta, tripID)
	if err != nil {
		return false, wrapRetryable("座席カウンタ更新に失敗しました", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("座席カウンタ更新結果の確認に失敗しました: %w", err)
	}
	return rowsAffected == 1, nil
}

// GetForShare はトランザクション内でツアーを取得する
// ApplySeatDelta が失敗した際に、存在しないのか満席なのかを同一トランザクションで判別する
func (r *TripRepository) GetForShare(ctx context.Context, tx transaction.Tx, id string) (*trip.Trip, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, fmt.Errorf("不明なトランザクション型です")
	}
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR SHARE`

	var row tripRow
	if err := sqlxTx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, trip.ErrTripNotFound
		}
		return nil, fmt.Errorf("ツアー取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// ListLegacyDepartures は旧形式の出発日時文字列が残っている行を取得する
func (r *TripRepository) ListLegacyDepartures(ctx context.Context, limit int) ([]trip.LegacyDeparture, error) {
	query := `SELECT id, legacy_depart_date FROM trips WHERE depart_at IS NULL AND legacy_depart_date IS NOT NULL LIMIT $1`

	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("旧形式出発日時の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []trip.LegacyDeparture
	for rows.Next() {
		var ld trip.LegacyDeparture
		if err := rows.Scan(&ld.TripID, &ld.Raw); err != nil {
			return nil, fmt.Errorf("旧形式出発日時の読み取りに失敗しました: %w", err)
		}
		result = append(result, ld)
	}
	return result, rows.Err()
}

// SetDepartAt は正規化済みの出発日時を書き戻す
// depart_at が未設定の行だけを対象にするため何度実行しても結果は変わらない
func (r *TripRepository) SetDepartAt(ctx context.Context, tripID string, departAt time.Time) error {
	query := `UPDATE trips SET depart_at = $1, updated_at = NOW() WHERE id = $2 AND depart_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, departAt, tripID); err != nil {
		return fmt.Errorf("出発日時の書き戻しに失敗しました: %w", err)
	}
	return nil
}

// wrapRetryable はリトライ可能なストアエラーを transaction.ErrContention に変換する
func wrapRetryable(msg string, err error) error {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		// 40001: serialization_failure, 40P01: deadlock_detected
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return fmt.Errorf("%s: %w", msg, transaction.ErrContention)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

var _ trip.Repository = (*TripRepository)(nil)
