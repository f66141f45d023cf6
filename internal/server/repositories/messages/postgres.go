package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

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

const selectMessages = `SELECT m.id, m.user_id, m.system_folder, m.folder_id, m.message_id,
		 m.from_address, m.from_name, m.to_address, m.to_name, m.cc_address, m.bcc_address,
		 m.subject, m.body, m.body_html, m.is_read, m.is_starred, m.is_draft,
		 (ad.message_id IS NOT NULL) AS is_active_draft, m.has_attachments, m.attachments, m.priority,
		 m.received_at, m.sent_at, m.created_at, m.updated_at
		 FROM messages m LEFT JOIN active_drafts ad ON ad.message_id = m.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	m := &models.Message{}
	var (
		system     sql.NullString
		folderID   sql.NullInt64
		receivedAt sql.NullTime
		sentAt     sql.NullTime
		priority   string
	)

	err := row.Scan(&m.ID, &m.UserID, &system, &folderID, &m.MessageID,
		&m.FromAddress, &m.FromName, &m.ToAddress, &m.ToName, &m.CcAddress, &m.BccAddress,
		&m.Subject, &m.Body, &m.BodyHTML, &m.IsRead, &m.IsStarred, &m.IsDraft,
		&m.IsActiveDraft, &m.HasAttachments, &m.Attachments, &priority,
		&receivedAt, &sentAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	m.Folder = models.FolderRef{System: models.SystemFolder(system.String), CustomID: folderID.Int64}
	m.Priority = models.Priority(priority)
	if receivedAt.Valid {
		t := receivedAt.Time
		m.ReceivedAt = &t
	}
	if sentAt.Valid {
		t := sentAt.Time
		m.SentAt = &t
	}
	return m, nil
}

func folderArgs(ref models.FolderRef) (sql.NullString, sql.NullInt64) {
	return sql.NullString{String: string(ref.System), Valid: ref.System != ""},
		sql.NullInt64{Int64: ref.CustomID, Valid: ref.CustomID != 0}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Message) (*models.Message, error) {
	query :=
		`INSERT INTO messages (user_id, system_folder, folder_id, message_id,
		 from_address, from_name, to_address, to_name, cc_address, bcc_address,
		 subject, body, body_html, is_read, is_starred, is_draft, has_attachments, attachments, priority,
		 received_at, sent_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		 RETURNING id
		 `

	system, folderID := folderArgs(m.Folder)
	err := r.db.QueryRowContext(ctx, query,
		m.UserID, system, folderID, m.MessageID,
		m.FromAddress, m.FromName, m.ToAddress, m.ToName, m.CcAddress, m.BccAddress,
		m.Subject, m.Body, m.BodyHTML, m.IsRead, m.IsStarred, m.IsDraft, m.HasAttachments, m.Attachments, string(m.Priority),
		nullTime(m.ReceivedAt), nullTime(m.SentAt), m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	m.IsActiveDraft = false
	return m, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Message, error) {
	m, err := scanMessage(r.db.QueryRowContext(ctx, selectMessages+` WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) Update(ctx context.Context, m *models.Message, expectedUpdatedAt *time.Time) error {
	query :=
		`UPDATE messages SET system_folder = $2, folder_id = $3, message_id = $4,
		 from_address = $5, from_name = $6, to_address = $7, to_name = $8, cc_address = $9, bcc_address = $10,
		 subject = $11, body = $12, body_html = $13, is_read = $14, is_starred = $15, is_draft = $16,
		 has_attachments = $17, attachments = $18, priority = $19, received_at = $20, sent_at = $21, updated_at = $22
		 WHERE id = $1 AND ($23::timestamptz IS NULL OR updated_at = $23)
		 `

	system, folderID := folderArgs(m.Folder)
	res, err := r.db.ExecContext(ctx, query,
		m.ID, system, folderID, m.MessageID,
		m.FromAddress, m.FromName, m.ToAddress, m.ToName, m.CcAddress, m.BccAddress,
		m.Subject, m.Body, m.BodyHTML, m.IsRead, m.IsStarred, m.IsDraft,
		m.HasAttachments, m.Attachments, string(m.Priority), nullTime(m.ReceivedAt), nullTime(m.SentAt), m.UpdatedAt,
		nullTime(expectedUpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		if expectedUpdatedAt != nil {
			return common.ErrVersionConflict
		}
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
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

func (r *PostgresRepository) List(ctx context.Context, q Query) ([]*models.Message, error) {
	var sb strings.Builder
	sb.WriteString(selectMessages)
	sb.WriteString(` WHERE m.user_id = $1`)
	args := []any{q.UserID}

	if q.Folder != nil {
		args = append(args, folderValue(*q.Folder))
		if q.Folder.IsCustom() {
			sb.WriteString(` AND m.folder_id = $` + strconv.Itoa(len(args)))
		} else {
			sb.WriteString(` AND m.system_folder = $` + strconv.Itoa(len(args)))
		}
	}
	if q.StarredOnly {
		sb.WriteString(` AND m.is_starred`)
	}
	sb.WriteString(` ORDER BY m.id`)

	return r.query(ctx, sb.String(), args...)
}

func folderValue(ref models.FolderRef) any {
	if ref.IsCustom() {
		return ref.CustomID
	}
	return string(ref.System)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) FolderStats(ctx context.Context, userID int64) ([]FolderStat, error) {
	query :=
		`SELECT system_folder, folder_id, COUNT(*),
		 COUNT(*) FILTER (WHERE NOT is_read), COUNT(*) FILTER (WHERE is_draft)
		 FROM messages
		 WHERE user_id = $1
		 GROUP BY system_folder, folder_id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []FolderStat
	for rows.Next() {
		var (
			system   sql.NullString
			folderID sql.NullInt64
			s        FolderStat
		)
		if err := rows.Scan(&system, &folderID, &s.Total, &s.Unread, &s.Drafts); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		s.Folder = models.FolderRef{System: models.SystemFolder(system.String), CustomID: folderID.Int64}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) CountStarred(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE user_id = $1 AND is_starred`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) MoveOutOfFolder(ctx context.Context, userID, folderID int64, to models.FolderRef) (int64, error) {
	query :=
		`UPDATE messages SET system_folder = $3, folder_id = $4, updated_at = now()
		 WHERE user_id = $1 AND folder_id = $2
		 `

	system, toID := folderArgs(to)
	res, err := r.db.ExecContext(ctx, query, userID, folderID, system, toID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListEmptyDrafts(ctx context.Context, userID int64) ([]*models.Message, error) {
	return r.query(ctx, selectMessages+
		` WHERE m.user_id = $1 AND m.is_draft AND m.subject = '' AND m.body = '' AND m.to_address = ''
		 AND ad.message_id IS NULL ORDER BY m.id`, userID)
}

func (r *PostgresRepository) ListExpired(ctx context.Context, cutoff time.Time) ([]*models.Message, error) {
	return r.query(ctx, selectMessages+
		` WHERE (m.system_folder = 'trash' AND m.updated_at < $1)
		 OR (m.system_folder = 'junk' AND COALESCE(m.received_at, m.created_at) < $1)
		 ORDER BY m.id`, cutoff)
}

func (r *PostgresRepository) ActiveDraftID(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT message_id FROM active_drafts WHERE user_id = $1`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) SetActiveDraft(ctx context.Context, userID, messageID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO active_drafts (user_id, message_id) VALUES ($1, $2)`, userID, messageID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrConcurrencyConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ClearActiveDraft(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM active_drafts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
