// Package services contains server-side business logic. MessageService owns
// everything between the caller's plaintext and the stored ciphertext rows:
// field encryption, attachment preservation, folder semantics, listing and
// the draft lifecycle (drafts.go).
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/cryptox"
	"github.com/dmitrijs2005/webmail/internal/dbx"
	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/dmitrijs2005/webmail/internal/server/attachments"
	"github.com/dmitrijs2005/webmail/internal/server/models"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/messages"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/repomanager"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultPageSize is used when ListOptions.Limit is 0.
const DefaultPageSize = 50

// List filters.
const (
	FilterAll         = "all"
	FilterUnread      = "unread"
	FilterStarred     = "starred"
	FilterAttachments = "attachments"
	FilterTags        = "tags"
)

// List sort orders.
const (
	SortDate    = "date"
	SortSender  = "sender"
	SortSubject = "subject"
)

type ListOptions struct {
	Limit    int
	Offset   int
	FilterBy string
	SortBy   string
	// TagID narrows FilterTags to one tag; 0 means any tag.
	TagID int64
}

type ListResult struct {
	Messages   []*models.Message `json:"messages"`
	TotalCount int               `json:"totalCount"`
}

type MessageServiceConfig struct {
	// MaxTagsPerMessage caps tag associations; 0 disables the limit.
	MaxTagsPerMessage int
	// RetentionWindow is how long Trash and Junk rows are kept.
	RetentionWindow time.Duration
}

type MessageService struct {
	repomanager repomanager.RepositoryManager
	cipher      *cryptox.FieldCipher
	store       attachments.Store
	logger      logging.Logger
	cfg         MessageServiceConfig
	locks       userLocks
	now         func() time.Time
}

func NewMessageService(m repomanager.RepositoryManager, cipher *cryptox.FieldCipher, store attachments.Store,
	logger logging.Logger, cfg MessageServiceConfig) *MessageService {
	return &MessageService{
		repomanager: m,
		cipher:      cipher,
		store:       store,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// timestamp is now at the precision the database keeps.
func (s *MessageService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *MessageService) messages() messages.Repository {
	return s.repomanager.Messages(s.repomanager.Conn())
}

// owned loads a row and hides rows of other users.
func owned(ctx context.Context, repo messages.Repository, userID, id int64) (*models.Message, error) {
	m, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return m, nil
}

// applyPatch copies the provided fields of p onto the stored row m,
// encrypting the protected ones. Folder and draft state are left to callers.
func (s *MessageService) applyPatch(ctx context.Context, m *models.Message, p models.MessagePatch) error {
	for _, f := range []struct {
		src *string
		dst *string
	}{
		{p.FromAddress, &m.FromAddress},
		{p.ToAddress, &m.ToAddress},
		{p.CcAddress, &m.CcAddress},
		{p.BccAddress, &m.BccAddress},
		{p.Subject, &m.Subject},
		{p.Body, &m.Body},
		{p.BodyHTML, &m.BodyHTML},
	} {
		if f.src == nil {
			continue
		}
		ct, err := s.cipher.Encrypt(*f.src, m.UserID)
		if err != nil {
			return fmt.Errorf("encrypt field: %w", err)
		}
		*f.dst = ct
	}

	if p.MessageID != nil {
		m.MessageID = *p.MessageID
	}
	if p.FromName != nil {
		m.FromName = *p.FromName
	}
	if p.ToName != nil {
		m.ToName = *p.ToName
	}
	if p.IsRead != nil {
		m.IsRead = *p.IsRead
	}
	if p.IsStarred != nil {
		m.IsStarred = *p.IsStarred
	}
	if p.Priority != nil {
		m.Priority = *p.Priority
	}
	if p.ReceivedAt != nil {
		t := p.ReceivedAt.UTC()
		m.ReceivedAt = &t
	}

	if p.AttachmentsMalformed {
		s.logger.Warn(ctx, "malformed attachments value treated as null", "user_id", m.UserID, "message_id", m.ID)
	}
	// Omitted attachments keep what is stored.
	if p.Attachments != nil {
		m.Attachments = models.AttachmentList(*p.Attachments)
		if len(m.Attachments) == 0 {
			m.Attachments = nil
		}
	}
	m.HasAttachments = len(m.Attachments) > 0
	return nil
}

// decrypt turns a stored row into its plaintext read model. A field that
// still opens after decryption was encrypted twice; it is logged and
// replaced so ciphertext never leaves the service.
func (s *MessageService) decrypt(ctx context.Context, m *models.Message) *models.Message {
	out := m.Clone()
	for _, f := range out.EncryptedFields() {
		*f = s.cipher.Decrypt(*f, out.UserID)
		if !cryptox.LooksEncrypted(*f) {
			continue
		}
		if pt, ok := s.cipher.TryDecrypt(*f, out.UserID); ok {
			s.logger.Warn(ctx, "ciphertext survived decryption", "user_id", out.UserID, "message_id", out.ID)
			*f = pt
		}
	}
	return out
}

// tagNames maps message ids to their tag names.
func (s *MessageService) tagNames(ctx context.Context, userID int64) (map[int64][]string, map[int64][]int64, error) {
	assoc, err := s.repomanager.Tags(s.repomanager.Conn()).Associations(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	names := map[int64][]string{}
	ids := map[int64][]int64{}
	for _, a := range assoc {
		names[a.MessageID] = append(names[a.MessageID], a.Name)
		ids[a.MessageID] = append(ids[a.MessageID], a.TagID)
	}
	return names, ids, nil
}

func (s *MessageService) get(ctx context.Context, userID, id int64) (*models.Message, error) {
	row, err := owned(ctx, s.messages(), userID, id)
	if err != nil {
		return nil, err
	}

	tagList, err := s.repomanager.Tags(s.repomanager.Conn()).ListForMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	m := s.decrypt(ctx, row)
	m.Tags = make([]string, 0, len(tagList))
	for _, t := range tagList {
		m.Tags = append(m.Tags, t.Name)
	}
	return m, nil
}

// Get returns the decrypted message with its tag names.
func (s *MessageService) Get(ctx context.Context, userID, id int64) (*models.Message, error) {
	return s.get(ctx, userID, id)
}

// Create stores a new message. A non-draft sent while the user has an
// active draft converts that draft instead, and a draft saved while one is
// active updates it, so compose never leaves duplicate rows.
func (s *MessageService) Create(ctx context.Context, userID int64, p models.MessagePatch) (*models.Message, error) {
	isDraft := p.IsDraft != nil && *p.IsDraft

	unlock := s.locks.lock(userID)
	defer unlock()

	activeID, err := s.messages().ActiveDraftID(ctx, userID)
	switch {
	case err == nil && !isDraft:
		m, err := s.convertToSent(ctx, userID, activeID, p)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: active draft vanished", common.ErrConcurrencyConflict)
		}
		return m, err
	case err == nil:
		return s.update(ctx, userID, activeID, p)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, err
	}

	now := s.timestamp()
	row := &models.Message{
		UserID:    userID,
		IsDraft:   isDraft,
		Priority:  models.PriorityNormal,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch {
	case isDraft:
		row.Folder = models.SystemRef(models.FolderDrafts)
		if p.Folder != nil {
			ref, err := s.resolveTarget(ctx, userID, *p.Folder)
			if err != nil {
				return nil, err
			}
			if !ref.Is(models.FolderDrafts) {
				return nil, fmt.Errorf("%w: drafts live in the drafts folder", common.ErrValidation)
			}
		}
	case p.Folder != nil:
		ref, err := s.resolveTarget(ctx, userID, *p.Folder)
		if err != nil {
			return nil, err
		}
		if ref.Is(models.FolderDrafts) {
			return nil, fmt.Errorf("%w: only drafts live in the drafts folder", common.ErrValidation)
		}
		row.Folder = ref
		if ref.Is(models.FolderSent) {
			row.SentAt = &now
		}
	default:
		row.Folder = models.SystemRef(models.FolderSent)
		row.SentAt = &now
	}
	row.ReceivedAt = &now

	if err := s.applyPatch(ctx, row, p); err != nil {
		return nil, err
	}

	makeActive := isDraft && p.IsActiveDraft != nil && *p.IsActiveDraft
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Messages(tx)
		if _, err := repo.Create(ctx, row); err != nil {
			return err
		}
		if makeActive {
			return repo.SetActiveDraft(ctx, userID, row.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "message created", "user_id", userID, "message_id", row.ID, "folder", row.Folder.String())
	return s.get(ctx, userID, row.ID)
}

// Update changes only the fields present in p. With p.IfUnmodifiedSince set
// the write is a compare-and-swap on updatedAt.
func (s *MessageService) Update(ctx context.Context, userID, id int64, p models.MessagePatch) (*models.Message, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	return s.update(ctx, userID, id, p)
}

// update needs the user's lock held.

func (s *MessageService) update(ctx context.Context, userID, id int64, p models.MessagePatch) (*models.Message, error) {
	repo := s.messages()
	row, err := owned(ctx, repo, userID, id)
	if err != nil {
		return nil, err
	}

	clearActive := false
	if p.IsDraft != nil {
		clearActive = row.IsDraft && !*p.IsDraft && row.IsActiveDraft
		row.IsDraft = *p.IsDraft
	}
	if p.Folder != nil {
		if err := s.moveRow(ctx, row, *p.Folder); err != nil {
			return nil, err
		}
	}
	if row.IsDraft && !row.Folder.Is(models.FolderDrafts) {
		return nil, fmt.Errorf("%w: drafts live in the drafts folder", common.ErrValidation)
	}

	if err := s.applyPatch(ctx, row, p); err != nil {
		return nil, err
	}
	row.UpdatedAt = s.timestamp()

	// the reference is only dropped once the row write went through
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Messages(tx)
		if err := repo.Update(ctx, row, p.IfUnmodifiedSince); err != nil {
			return err
		}
		if clearActive {
			return repo.ClearActiveDraft(ctx, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, userID, id)
}

// Delete moves the message to Trash, unless permanent is set or the message
// already is in Drafts, Junk or Trash; those are removed for good. It
// reports whether the row was removed.
func (s *MessageService) Delete(ctx context.Context, userID, id int64, permanent bool) (bool, error) {
	repo := s.messages()
	row, err := owned(ctx, repo, userID, id)
	if err != nil {
		return false, err
	}

	f := row.Folder
	if permanent || f.Is(models.FolderDrafts) || f.Is(models.FolderJunk) || f.Is(models.FolderTrash) {
		if err := s.hardDelete(ctx, []*models.Message{row}); err != nil {
			return false, err
		}
		return true, nil
	}

	row.Folder = models.SystemRef(models.FolderTrash)
	row.UpdatedAt = s.timestamp()
	if err := repo.Update(ctx, row, nil); err != nil {
		return false, err
	}
	return false, nil
}

// deleteRows removes rows and their tag associations through db.
func (s *MessageService) deleteRows(ctx context.Context, db dbx.DBTX, rows []*models.Message) error {
	repo := s.repomanager.Messages(db)
	tagRepo := s.repomanager.Tags(db)
	for _, m := range rows {
		if err := tagRepo.RemoveAllFromMessage(ctx, m.ID); err != nil {
			return err
		}
		if err := repo.Delete(ctx, m.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
	}
	return nil
}

// hardDelete is the single permanent-delete path: rows go in one
// transaction, then their attachment files.
func (s *MessageService) hardDelete(ctx context.Context, rows []*models.Message) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.deleteRows(ctx, tx, rows)
	}); err != nil {
		return err
	}
	s.cleanupFiles(ctx, rows)
	return nil
}

// cleanupFiles removes the attachment files of deleted rows and refreshes
// each owner's storage usage.
func (s *MessageService) cleanupFiles(ctx context.Context, rows []*models.Message) {
	byUser := map[int64][]string{}
	for _, m := range rows {
		for _, a := range m.Attachments {
			byUser[m.UserID] = append(byUser[m.UserID], a.Path)
		}
	}
	for userID, names := range byUser {
		s.store.Cleanup(ctx, userID, names)
		if _, err := refreshStorageUsed(ctx, s.repomanager, s.store, userID); err != nil {
			s.logger.Warn(ctx, "storage usage refresh failed", "user_id", userID, "error", err)
		}
	}
}

// moveRow points row at the folder named ident. "starred" stars instead.
func (s *MessageService) moveRow(ctx context.Context, row *models.Message, ident string) error {
	if strings.EqualFold(strings.TrimSpace(ident), models.VirtualStarred) {
		row.IsStarred = true
		return nil
	}
	ref, err := s.resolveTarget(ctx, row.UserID, ident)
	if err != nil {
		return err
	}
	if row.IsDraft && !ref.Is(models.FolderDrafts) {
		return fmt.Errorf("%w: a draft cannot leave the drafts folder", common.ErrValidation)
	}
	if !row.IsDraft && ref.Is(models.FolderDrafts) {
		return fmt.Errorf("%w: only drafts live in the drafts folder", common.ErrValidation)
	}
	row.Folder = ref
	return nil
}

// Move reassigns the folder; read and star state stay as they are.
func (s *MessageService) Move(ctx context.Context, userID, id int64, folder string) (*models.Message, error) {
	repo := s.messages()
	row, err := owned(ctx, repo, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.moveRow(ctx, row, folder); err != nil {
		return nil, err
	}
	row.UpdatedAt = s.timestamp()
	if err := repo.Update(ctx, row, nil); err != nil {
		return nil, err
	}
	return s.get(ctx, userID, id)
}

func (s *MessageService) flip(ctx context.Context, userID, id int64, fn func(m *models.Message)) (*models.Message, error) {
	repo := s.messages()
	row, err := owned(ctx, repo, userID, id)
	if err != nil {
		return nil, err
	}
	fn(row)
	row.UpdatedAt = s.timestamp()
	if err := repo.Update(ctx, row, nil); err != nil {
		return nil, err
	}
	return s.get(ctx, userID, id)
}

func (s *MessageService) ToggleStar(ctx context.Context, userID, id int64) (*models.Message, error) {
	return s.flip(ctx, userID, id, func(m *models.Message) { m.IsStarred = !m.IsStarred })
}

func (s *MessageService) MarkRead(ctx context.Context, userID, id int64, read bool) (*models.Message, error) {
	return s.flip(ctx, userID, id, func(m *models.Message) { m.IsRead = read })
}

// primaryTime is the date a message sorts by in its folder.
func primaryTime(m *models.Message) time.Time {
	var t *time.Time
	switch {
	case m.Folder.Is(models.FolderDrafts):
		t = &m.UpdatedAt
	case m.Folder.Is(models.FolderSent):
		t = m.SentAt
	default:
		t = m.ReceivedAt
	}
	if t == nil || t.IsZero() {
		return m.CreatedAt
	}
	return *t
}

func receivedTime(m *models.Message) time.Time {
	if m.ReceivedAt != nil {
		return *m.ReceivedAt
	}
	return m.CreatedAt
}

func senderKey(m *models.Message) string {
	if m.FromName != "" {
		return m.FromName
	}
	return m.FromAddress
}

// List returns one page of a folder, after filtering and sorting.
// TotalCount is the filtered size.
func (s *MessageService) List(ctx context.Context, userID int64, folder string, opts ListOptions) (*ListResult, error) {
	q, err := s.query(ctx, userID, folder)
	if err != nil {
		return nil, err
	}

	match, err := filterFunc(opts)
	if err != nil {
		return nil, err
	}

	rows, err := s.messages().List(ctx, q)
	if err != nil {
		return nil, err
	}
	names, tagIDs, err := s.tagNames(ctx, userID)
	if err != nil {
		return nil, err
	}

	var list []*models.Message
	for _, row := range rows {
		if !match(row, tagIDs[row.ID]) {
			continue
		}
		list = append(list, s.decrypt(ctx, row))
	}

	if err := sortMessages(list, opts.SortBy); err != nil {
		return nil, err
	}

	total := len(list)
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	start := min(max(opts.Offset, 0), total)
	end := min(start+limit, total)

	page := list[start:end]
	for _, m := range page {
		m.Tags = append([]string{}, names[m.ID]...)
	}
	if page == nil {
		page = []*models.Message{}
	}
	return &ListResult{Messages: page, TotalCount: total}, nil
}

func filterFunc(opts ListOptions) (func(m *models.Message, tagIDs []int64) bool, error) {
	switch strings.ToLower(opts.FilterBy) {
	case "", FilterAll:
		return func(*models.Message, []int64) bool { return true }, nil
	case FilterUnread:
		return func(m *models.Message, _ []int64) bool { return !m.IsRead }, nil
	case FilterStarred:
		return func(m *models.Message, _ []int64) bool { return m.IsStarred }, nil
	case FilterAttachments:
		return func(m *models.Message, _ []int64) bool { return m.HasAttachments }, nil
	case FilterTags:
		return func(_ *models.Message, ids []int64) bool {
			if opts.TagID == 0 {
				return len(ids) > 0
			}
			for _, id := range ids {
				if id == opts.TagID {
					return true
				}
			}
			return false
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", common.ErrValidation, opts.FilterBy)
	}
}

// sortMessages orders newest first, then re-sorts stably by sender or
// subject when asked.
func sortMessages(list []*models.Message, sortBy string) error {
	sort.SliceStable(list, func(i, j int) bool {
		return primaryTime(list[i]).After(primaryTime(list[j]))
	})

	var key func(m *models.Message) string
	switch strings.ToLower(sortBy) {
	case "", SortDate:
		return nil
	case SortSender:
		key = senderKey
	case SortSubject:
		key = func(m *models.Message) string { return m.Subject }
	default:
		return fmt.Errorf("%w: unknown sort %q", common.ErrValidation, sortBy)
	}

	c := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(list, func(i, j int) bool {
		return c.CompareString(key(list[i]), key(list[j])) < 0
	})
	return nil
}

// Search matches query case-insensitively against subject, body, sender
// and recipient. An unknown folder yields no results.
func (s *MessageService) Search(ctx context.Context, userID int64, query, folder string) ([]*models.Message, error) {
	out := []*models.Message{}
	query = strings.TrimSpace(query)
	if query == "" {
		return out, nil
	}

	q := messages.Query{UserID: userID}
	if strings.TrimSpace(folder) != "" {
		var err error
		if q, err = s.query(ctx, userID, folder); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return out, nil
			}
			return nil, err
		}
	}

	rows, err := s.messages().List(ctx, q)
	if err != nil {
		return nil, err
	}
	names, _, err := s.tagNames(ctx, userID)
	if err != nil {
		return nil, err
	}

	fold := cases.Fold()
	needle := fold.String(query)
	for _, row := range rows {
		m := s.decrypt(ctx, row)
		for _, field := range []string{m.Subject, m.Body, m.FromName, m.FromAddress, m.ToAddress} {
			if strings.Contains(fold.String(field), needle) {
				m.Tags = append([]string{}, names[m.ID]...)
				out = append(out, m)
				break
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return receivedTime(out[i]).After(receivedTime(out[j]))
	})
	return out, nil
}

// Counts reports badge numbers: unread for Inbox and Junk, all drafts for
// Drafts, 0 for the other system folders, totals for custom folders keyed
// by lower-cased name, and a cross-folder starred count.
func (s *MessageService) Counts(ctx context.Context, userID int64) (map[string]int, error) {
	stats, err := s.messages().FolderStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	custom, err := s.repomanager.Folders(s.repomanager.Conn()).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	starred, err := s.messages().CountStarred(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int, len(models.SystemFolders)+len(custom)+1)
	for _, f := range models.SystemFolders {
		out[string(f)] = 0
	}
	names := make(map[int64]string, len(custom))
	for _, f := range custom {
		names[f.ID] = strings.ToLower(f.Name)
		out[names[f.ID]] = 0
	}

	for _, st := range stats {
		switch {
		case st.Folder.IsCustom():
			if name, ok := names[st.Folder.CustomID]; ok {
				out[name] = st.Total
			}
		case st.Folder.Is(models.FolderInbox), st.Folder.Is(models.FolderJunk):
			out[string(st.Folder.System)] = st.Unread
		case st.Folder.Is(models.FolderDrafts):
			out[string(st.Folder.System)] = st.Drafts
		}
	}
	out[models.VirtualStarred] = starred
	return out, nil
}

// Receive stores an inbound message in the Inbox, or in Junk when the
// sender is blocked.
func (s *MessageService) Receive(ctx context.Context, userID int64, p models.MessagePatch) (*models.Message, error) {
	folder := models.SystemRef(models.FolderInbox)
	if p.FromAddress != nil && *p.FromAddress != "" {
		blocked, err := s.repomanager.BlockedSenders(s.repomanager.Conn()).IsBlocked(ctx, userID, *p.FromAddress)
		if err != nil {
			return nil, err
		}
		if blocked {
			folder = models.SystemRef(models.FolderJunk)
		}
	}

	now := s.timestamp()
	row := &models.Message{
		UserID:     userID,
		Folder:     folder,
		Priority:   models.PriorityNormal,
		ReceivedAt: &now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.applyPatch(ctx, row, p); err != nil {
		return nil, err
	}
	if _, err := s.messages().Create(ctx, row); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "message received", "user_id", userID, "message_id", row.ID, "folder", folder.String())
	return s.get(ctx, userID, row.ID)
}

// AddTag associates a tag with a message. It reports false when the tag
// was already there.
func (s *MessageService) AddTag(ctx context.Context, userID, messageID, tagID int64) (bool, error) {
	if _, err := owned(ctx, s.messages(), userID, messageID); err != nil {
		return false, err
	}
	tagRepo := s.repomanager.Tags(s.repomanager.Conn())
	tag, err := tagRepo.Get(ctx, tagID)
	if err != nil {
		return false, err
	}
	if tag.UserID != userID {
		return false, common.ErrorNotFound
	}

	current, err := tagRepo.ListForMessage(ctx, messageID)
	if err != nil {
		return false, err
	}
	for _, t := range current {
		if t.ID == tagID {
			return false, nil
		}
	}
	if limit := s.cfg.MaxTagsPerMessage; limit > 0 && len(current) >= limit {
		return false, fmt.Errorf("%w: a message can carry at most %d tags", common.ErrValidation, limit)
	}
	return tagRepo.AddToMessage(ctx, messageID, tagID)
}

// RemoveTag reports false when the association did not exist.
func (s *MessageService) RemoveTag(ctx context.Context, userID, messageID, tagID int64) (bool, error) {
	if _, err := owned(ctx, s.messages(), userID, messageID); err != nil {
		return false, err
	}
	return s.repomanager.Tags(s.repomanager.Conn()).RemoveFromMessage(ctx, messageID, tagID)
}

func (s *MessageService) MessageTags(ctx context.Context, userID, messageID int64) ([]*models.Tag, error) {
	if _, err := owned(ctx, s.messages(), userID, messageID); err != nil {
		return nil, err
	}
	return s.repomanager.Tags(s.repomanager.Conn()).ListForMessage(ctx, messageID)
}

// PurgeExpired permanently deletes Trash and Junk rows older than the
// retention window and returns how many went.
func (s *MessageService) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	if s.cfg.RetentionWindow <= 0 {
		return 0, nil
	}
	rows, err := s.messages().ListExpired(ctx, now.Add(-s.cfg.RetentionWindow))
	if err != nil {
		return 0, err
	}
	if err := s.hardDelete(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
