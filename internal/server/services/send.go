package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/dmitrijs2005/webmail/internal/server/attachments"
	"github.com/dmitrijs2005/webmail/internal/server/delivery"
	"github.com/dmitrijs2005/webmail/internal/server/models"
)

// Deliverer submits a composed message. delivery.Pipeline implements it.
type Deliverer interface {
	Deliver(ctx context.Context, out *delivery.Outbound, creds delivery.Credentials) delivery.Result
}

// MailboxVerifier checks submission credentials. delivery.SMTPTransport
// implements it.
type MailboxVerifier interface {
	Verify(ctx context.Context, creds delivery.Credentials) error
}

// SendRequest is an outgoing message as composed by the user. Attachments
// reference files already uploaded through AttachmentService; nil keeps a
// draft's attachments.
type SendRequest struct {
	To           string                 `json:"to"`
	Cc           string                 `json:"cc"`
	Bcc          string                 `json:"bcc"`
	Subject      string                 `json:"subject"`
	HTMLBody     string                 `json:"html"`
	TextBody     string                 `json:"text"`
	Priority     *models.Priority       `json:"priority,omitempty"`
	Attachments  *[]models.Attachment   `json:"attachments,omitempty"`
	InlineImages []delivery.InlineImage `json:"inlineImages,omitempty"`
}

type SendResult struct {
	Message  *models.Message `json:"message"`
	Delivery delivery.Result `json:"delivery"`
}

// SendService persists a sent message and hands it to delivery. A failed
// delivery leaves the stored message in place and is reported in the
// result.
type SendService struct {
	users    *UserService
	messages *MessageService
	store    attachments.Store
	deliver  Deliverer
	verifier MailboxVerifier
	logger   logging.Logger
}

func NewSendService(users *UserService, messages *MessageService, store attachments.Store, deliver Deliverer,
	verifier MailboxVerifier, logger logging.Logger) *SendService {
	return &SendService{
		users:    users,
		messages: messages,
		store:    store,
		deliver:  deliver,
		verifier: verifier,
		logger:   logger,
	}
}

func (s *SendService) patch(user *models.User, req SendRequest) models.MessagePatch {
	html := req.HTMLBody
	if html == "" {
		html = delivery.TextToHTML(req.TextBody)
	}
	if user.Signature != "" {
		html += "<br><br>" + user.Signature
	}
	text := req.TextBody
	if text == "" {
		text = delivery.HTMLToText(html)
	}

	isDraft := false
	from := user.Email
	fromName := user.DisplayName()
	return models.MessagePatch{
		IsDraft:     &isDraft,
		FromAddress: &from,
		FromName:    &fromName,
		ToAddress:   &req.To,
		CcAddress:   &req.Cc,
		BccAddress:  &req.Bcc,
		Subject:     &req.Subject,
		Body:        &text,
		BodyHTML:    &html,
		Priority:    req.Priority,
		Attachments: req.Attachments,
	}
}

// Send stores the message as sent, converting the active draft if there is
// one, and delivers it.
func (s *SendService) Send(ctx context.Context, userID int64, req SendRequest) (*SendResult, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	m, err := s.messages.Create(ctx, userID, s.patch(user, req))
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, user, m, req), nil
}

// SendDraft converts the given draft in place and delivers it.
func (s *SendService) SendDraft(ctx context.Context, userID, draftID int64, req SendRequest) (*SendResult, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	m, err := s.messages.ConvertToSent(ctx, userID, draftID, s.patch(user, req))
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, user, m, req), nil
}

func (s *SendService) dispatch(ctx context.Context, user *models.User, m *models.Message, req SendRequest) *SendResult {
	res := &SendResult{Message: m}

	creds, err := s.users.MailboxCredentials(ctx, user.ID)
	if err != nil {
		s.logger.Warn(ctx, "mailbox credentials unavailable", "user_id", user.ID, "error", err)
		res.Delivery = delivery.Result{Sent: false, Error: err.Error()}
		return res
	}

	out := &delivery.Outbound{
		From:         user.Email,
		FromName:     user.DisplayName(),
		To:           m.ToAddress,
		Cc:           m.CcAddress,
		Bcc:          m.BccAddress,
		Subject:      m.Subject,
		HTMLBody:     m.BodyHTML,
		TextBody:     req.TextBody,
		Attachments:  s.loadAttachments(ctx, user.ID, m.Attachments),
		InlineImages: req.InlineImages,
	}

	res.Delivery = s.deliver.Deliver(ctx, out, creds)
	if !res.Delivery.Sent || res.Delivery.MessageID == "" {
		return res
	}

	id := res.Delivery.MessageID
	updated, err := s.messages.Update(ctx, user.ID, m.ID, models.MessagePatch{MessageID: &id})
	if err != nil {
		s.logger.Warn(ctx, "recording message id failed", "user_id", user.ID, "message_id", m.ID, "error", err)
		return res
	}
	res.Message = updated
	return res
}

// loadAttachments reads stored files. Missing files are logged and left out.
func (s *SendService) loadAttachments(ctx context.Context, userID int64, list models.AttachmentList) []delivery.Attachment {
	var out []delivery.Attachment
	for _, a := range list {
		data, err := s.store.Load(ctx, userID, a.Path)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				s.logger.Warn(ctx, "attachment file missing, sending without it", "user_id", userID, "path", a.Path)
			} else {
				s.logger.Error(ctx, "attachment load failed", "user_id", userID, "path", a.Path, "error", err)
			}
			continue
		}
		out = append(out, delivery.Attachment{Filename: a.Filename, Content: data, ContentType: a.MimeType})
	}
	return out
}

// VerifyMailbox checks that the user's stored credentials can log in to
// the submission server.
func (s *SendService) VerifyMailbox(ctx context.Context, userID int64) error {
	creds, err := s.users.MailboxCredentials(ctx, userID)
	if err != nil {
		return err
	}
	return s.verifier.Verify(ctx, creds)
}
