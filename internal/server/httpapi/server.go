// Package httpapi exposes the webmail services as a JSON API over net/http.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/dmitrijs2005/webmail/internal/server/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	maxJSONBody       = 4 << 20
)

// Services are the handlers' dependencies.
type Services struct {
	Users       *services.UserService
	Messages    *services.MessageService
	Folders     *services.FolderService
	Tags        *services.TagService
	Blocked     *services.BlockedSenderService
	Aliases     *services.AliasService
	Attachments *services.AttachmentService
	Send        *services.SendService
}

type Server struct {
	address       string
	logger        logging.Logger
	jwtSecret     []byte
	maxUploadSize int64
	svc           Services
}

func NewServer(address string, l logging.Logger, secretKey string, maxUploadSize int64, svc Services) *Server {
	return &Server{
		address:       address,
		logger:        l.With("module", "http_server"),
		jwtSecret:     []byte(secretKey),
		maxUploadSize: maxUploadSize,
		svc:           svc,
	}
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/auth/refresh", s.refresh)

	auth := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.accessToken(h))
	}

	auth("GET /api/me", s.me)
	auth("PATCH /api/me", s.updateProfile)
	auth("POST /api/me/mailbox/verify", s.verifyMailbox)

	auth("GET /api/messages", s.listMessages)
	auth("POST /api/messages", s.createMessage)
	auth("POST /api/messages/inbound", s.receiveMessage)
	auth("GET /api/messages/search", s.searchMessages)
	auth("GET /api/messages/counts", s.counts)
	auth("GET /api/messages/{id}", s.getMessage)
	auth("PATCH /api/messages/{id}", s.updateMessage)
	auth("DELETE /api/messages/{id}", s.deleteMessage)
	auth("POST /api/messages/{id}/move", s.moveMessage)
	auth("POST /api/messages/{id}/star", s.toggleStar)
	auth("POST /api/messages/{id}/read", s.markRead)
	auth("GET /api/messages/{id}/tags", s.messageTags)
	auth("PUT /api/messages/{id}/tags/{tagID}", s.addTag)
	auth("DELETE /api/messages/{id}/tags/{tagID}", s.removeTag)

	auth("GET /api/drafts/active", s.activeDraft)
	auth("POST /api/drafts/active", s.createActiveDraft)
	auth("DELETE /api/drafts/active", s.clearActiveDraft)
	auth("POST /api/drafts/{id}/send", s.sendDraft)
	auth("POST /api/send", s.send)

	auth("GET /api/folders", s.listFolders)
	auth("POST /api/folders", s.createFolder)
	auth("PATCH /api/folders/{id}", s.renameFolder)
	auth("DELETE /api/folders/{id}", s.deleteFolder)

	auth("GET /api/tags", s.listTags)
	auth("POST /api/tags", s.createTag)
	auth("PATCH /api/tags/{id}", s.updateTag)
	auth("DELETE /api/tags/{id}", s.deleteTag)

	auth("GET /api/blocked-senders", s.listBlocked)
	auth("POST /api/blocked-senders", s.block)
	auth("DELETE /api/blocked-senders/{id}", s.unblock)

	auth("GET /api/aliases", s.listAliases)
	auth("POST /api/aliases", s.createAlias)
	auth("GET /api/aliases/{id}", s.getAlias)
	auth("PATCH /api/aliases/{id}", s.updateAlias)
	auth("DELETE /api/aliases/{id}", s.deleteAlias)
	auth("POST /api/aliases/{id}/toggle", s.toggleAlias)

	auth("POST /api/attachments", s.uploadAttachment)
	auth("GET /api/attachments/{name}", s.downloadAttachment)
	auth("DELETE /api/attachments/{name}", s.removeAttachment)
	auth("GET /api/storage", s.storage)

	return s.logRequests(mux)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
