package tags

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

func (r *PostgresRepository) Create(ctx context.Context, tag *models.Tag) (*models.Tag, error) {
	query :=
		`INSERT INTO tags (user_id, name, color)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, tag.UserID, tag.Name, tag.Color).Scan(&tag.ID, &tag.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tag, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Tag, error) {
	t := &models.Tag{}
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, name, color, created_at FROM tags WHERE id = $1`, id).
		Scan(&t.ID, &t.UserID, &t.Name, &t.Color, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Tag, error) {
	return r.list(ctx, `SELECT id, user_id, name, color, created_at FROM tags WHERE user_id = $1 ORDER BY name`, userID)
}

func (r *PostgresRepository) ListForMessage(ctx context.Context, messageID int64) ([]*models.Tag, error) {
	query :=
		`SELECT t.id, t.user_id, t.name, t.color, t.created_at
		 FROM tags t JOIN message_tags mt ON mt.tag_id = t.id
		 WHERE mt.message_id = $1
		 ORDER BY mt.created_at, t.id
		 `
	return r.list(ctx, query, messageID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]*models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Tag
	for rows.Next() {
		t := &models.Tag{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, tag *models.Tag) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tags SET name = $2, color = $3 WHERE id = $1`, tag.ID, tag.Name, tag.Color)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
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

func (r *PostgresRepository) AddToMessage(ctx context.Context, messageID, tagID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO message_tags (message_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, messageID, tagID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) RemoveFromMessage(ctx context.Context, messageID, tagID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM message_tags WHERE message_id = $1 AND tag_id = $2`, messageID, tagID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) RemoveAllFromMessage(ctx context.Context, messageID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM message_tags WHERE message_id = $1`, messageID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Associations(ctx context.Context, userID int64) ([]Association, error) {
	query :=
		`SELECT mt.message_id, t.id, t.name
		 FROM message_tags mt JOIN tags t ON t.id = mt.tag_id
		 WHERE t.user_id = $1
		 ORDER BY mt.message_id, mt.created_at, t.id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Association
	for rows.Next() {
		var a Association
		if err := rows.Scan(&a.MessageID, &a.TagID, &a.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
