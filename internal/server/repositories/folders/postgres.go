package folders

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

const selectFolder = `SELECT id, user_id, name, color, icon, created_at, updated_at FROM folders`

func scanFolder(row interface{ Scan(dest ...any) error }) (*models.Folder, error) {
	f := &models.Folder{Kind: models.FolderKindCustom}
	if err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.Color, &f.Icon, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *PostgresRepository) Create(ctx context.Context, f *models.Folder) (*models.Folder, error) {
	query :=
		`INSERT INTO folders (user_id, name, color, icon)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, f.UserID, f.Name, f.Color, f.Icon).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	f.Kind = models.FolderKindCustom
	return f, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Folder, error) {
	return r.getOne(ctx, selectFolder+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByName(ctx context.Context, userID int64, name string) (*models.Folder, error) {
	return r.getOne(ctx, selectFolder+` WHERE user_id = $1 AND lower(name) = lower($2)`, userID, name)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Folder, error) {
	f, err := scanFolder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Folder, error) {
	rows, err := r.db.QueryContext(ctx, selectFolder+` WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, f *models.Folder) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE folders SET name = $2, color = $3, icon = $4, updated_at = now() WHERE id = $1`,
		f.ID, f.Name, f.Color, f.Icon)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
