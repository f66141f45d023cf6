package aliases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/dbx"
	"github.com/dmitrijs2005/webmail/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const aliasColumns = `id, user_id, alias_name, forward_to, is_active, description, created_at, updated_at`

func scanAlias(row interface{ Scan(dest ...any) error }) (*models.Alias, error) {
	a := &models.Alias{}
	err := row.Scan(&a.ID, &a.UserID, &a.AliasName, &a.ForwardTo, &a.IsActive, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Alias) (*models.Alias, error) {
	query :=
		`INSERT INTO aliases (user_id, alias_name, forward_to, is_active, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, a.UserID, a.AliasName, a.ForwardTo, a.IsActive, a.Description).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id int64) (*models.Alias, error) {
	a, err := scanAlias(r.db.QueryRowContext(ctx,
		`SELECT `+aliasColumns+` FROM aliases WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Alias, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+aliasColumns+` FROM aliases WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Alias
	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a *models.Alias) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE aliases SET forward_to = $1, is_active = $2, description = $3, updated_at = $4 WHERE id = $5 AND user_id = $6`,
		a.ForwardTo, a.IsActive, a.Description, a.UpdatedAt, a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM aliases WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
