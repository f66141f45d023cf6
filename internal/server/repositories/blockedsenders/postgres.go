package blockedsenders

import (
	"context"
	"database/sql"
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

func (r *PostgresRepository) Create(ctx context.Context, b *models.BlockedSender) (*models.BlockedSender, error) {
	query :=
		`INSERT INTO blocked_senders (user_id, blocked_email, message_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	var messageID sql.NullInt64
	if b.MessageID != nil {
		messageID = sql.NullInt64{Int64: *b.MessageID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query, b.UserID, b.Email, messageID).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.BlockedSender, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, blocked_email, message_id, created_at FROM blocked_senders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.BlockedSender
	for rows.Next() {
		b := &models.BlockedSender{}
		var messageID sql.NullInt64
		if err := rows.Scan(&b.ID, &b.UserID, &b.Email, &messageID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if messageID.Valid {
			id := messageID.Int64
			b.MessageID = &id
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blocked_senders WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) IsBlocked(ctx context.Context, userID int64, email string) (bool, error) {
	var blocked bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM blocked_senders WHERE user_id = $1 AND lower(blocked_email) = lower($2))`,
		userID, email).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return blocked, nil
}
