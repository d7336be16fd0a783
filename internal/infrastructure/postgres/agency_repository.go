package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-travel-booking/internal/domain/agency"
)

type agencyRow struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Phone     *string   `db:"phone"`
	Location  *string   `db:"location"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *agencyRow) toEntity() *agency.Agency {
	a := &agency.Agency{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Name:      r.Name,
		Email:     r.Email,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Phone != nil {
		a.Phone = *r.Phone
	}
	if r.Location != nil {
		a.Location = *r.Location
	}
	return a
}

// AgencyRepository は代理店リポジトリのPostgreSQL実装
type AgencyRepository struct {
	db *sqlx.DB
}

// NewAgencyRepository はAgencyRepositoryを作成する
func NewAgencyRepository(db *sqlx.DB) *AgencyRepository {
	return &AgencyRepository{db: db}
}

// Create は新しい代理店を作成する
// owner_id は一意制約を持ち、1ユーザー1代理店とする
func (r *AgencyRepository) Create(ctx context.Context, a *agency.Agency) error {
	query := `
		INSERT INTO agencies (owner_id, name, email, phone, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var phone, location *string
	if a.Phone != "" {
		phone = &a.Phone
	}
	if a.Location != "" {
		location = &a.Location
	}
	err := r.db.QueryRowContext(ctx, query, a.OwnerID, a.Name, a.Email, phone, location, a.CreatedAt, a.UpdatedAt).Scan(&a.ID)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return agency.ErrAgencyAlreadyExists
		}
		return fmt.Errorf("代理店作成に失敗しました: %w", err)
	}
	return nil
}

// GetByID はIDから代理店を取得する
func (r *AgencyRepository) GetByID(ctx context.Context, id string) (*agency.Agency, error) {
	var row agencyRow
	query := `SELECT id, owner_id, name, email, phone, location, created_at, updated_at FROM agencies WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, agency.ErrAgencyNotFound
		}
		return nil, fmt.Errorf("代理店取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// GetByOwnerID は所有ユーザーIDから代理店を取得する
func (r *AgencyRepository) GetByOwnerID(ctx context.Context, ownerID string) (*agency.Agency, error) {
	var row agencyRow
	query := `SELECT id, owner_id, name, email, phone, location, created_at, updated_at FROM agencies WHERE owner_id = $1`
	if err := r.db.GetContext(ctx, &row, query, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, agency.ErrAgencyNotFound
		}
		return nil, fmt.Errorf("代理店取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// Update は代理店を更新する
func (r *AgencyRepository) Update(ctx context.Context, a *agency.Agency) error {
	query := `UPDATE agencies SET name = $1, email = $2, phone = $3, location = $4, updated_at = $5 WHERE id = $6`
	var phone, location *string
	if a.Phone != "" {
		phone = &a.Phone
	}
	if a.Location != "" {
		location = &a.Location
	}
	result, err := r.db.ExecContext(ctx, query, a.Name, a.Email, phone, location, time.Now(), a.ID)
	if err != nil {
		return fmt.Errorf("代理店更新に失敗しました: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return agency.ErrAgencyNotFound
	}
	return nil
}

var _ agency.Repository = (*AgencyRepository)(nil)
