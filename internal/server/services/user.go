package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/cryptox"
	"github.com/dmitrijs2005/webmail/internal/dbx"
	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/dmitrijs2005/webmail/internal/server/attachments"
	"github.com/dmitrijs2005/webmail/internal/server/auth"
	"github.com/dmitrijs2005/webmail/internal/server/config"
	"github.com/dmitrijs2005/webmail/internal/server/delivery"
	"github.com/dmitrijs2005/webmail/internal/server/models"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/repomanager"
	"github.com/emersion/go-message/mail"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ProfileUpdate carries the provided profile fields.
type ProfileUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Signature *string `json:"signature,omitempty"`
}

// UserService provides account operations:
// - Register: create users and their storage area
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
type UserService struct {
	repomanager                  repomanager.RepositoryManager
	cipher                       *cryptox.FieldCipher
	store                        attachments.Store
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	defaultQuota                 int64
	now                          func() time.Time
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(m repomanager.RepositoryManager, cipher *cryptox.FieldCipher, store attachments.Store,
	logger logging.Logger, cfg *config.Config) *UserService {
	quota := cfg.DefaultStorageQuota
	if quota <= 0 {
		quota = common.DefaultStorageQuota
	}
	return &UserService{
		repomanager:                  m,
		cipher:                       cipher,
		store:                        store,
		logger:                       logger,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		defaultQuota:                 quota,
		now:                          time.Now,
	}
}

// Register creates an account. The password doubles as the mailbox
// password and is kept encrypted for outbound submission.
func (s *UserService) Register(ctx context.Context, email, password, firstName, lastName string) (*models.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", common.ErrValidation, email)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Email:        strings.ToLower(addr.Address),
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		StorageQuota: s.defaultQuota,
	}

	repo := s.repomanager.Users(s.repomanager.Conn())
	user, err = repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	// The field key depends on the id, so the secret is sealed after insert.
	if err := s.storeMailboxSecret(ctx, user.ID, password); err != nil {
		return nil, err
	}
	if err := s.store.CreateUserArea(ctx, user.ID); err != nil {
		s.logger.Error(ctx, "storage area creation failed", "user_id", user.ID, "error", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return repo.GetByID(ctx, user.ID)
}

func (s *UserService) storeMailboxSecret(ctx context.Context, userID int64, password string) error {
	secret, err := s.cipher.Encrypt(password, userID)
	if err != nil {
		return fmt.Errorf("encrypt mailbox secret: %w", err)
	}
	return s.repomanager.Users(s.repomanager.Conn()).UpdateMailboxSecret(ctx, userID, secret)
}

// Login verifies the password and, on success, returns a new TokenPair.
// Unknown emails and wrong passwords are indistinguishable.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.repomanager.Conn())
	user, err := repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, common.ErrorUnauthorized
	}

	if err := s.storeMailboxSecret(ctx, user.ID, password); err != nil {
		s.logger.Warn(ctx, "mailbox secret refresh failed", "user_id", user.ID, "error", err)
	}
	return s.generateTokenPair(ctx, user.ID, s.repomanager.Conn())
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.repomanager.Conn())

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(s.now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *UserService) Get(ctx context.Context, userID int64) (*models.User, error) {
	return s.repomanager.Users(s.repomanager.Conn()).GetByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*models.User, error) {
	repo := s.repomanager.Users(s.repomanager.Conn())
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.FirstName != nil {
		user.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		user.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Signature != nil {
		user.Signature = *upd.Signature
	}
	if err := repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, userID)
}

// MailboxCredentials returns the user's own submission login.
func (s *UserService) MailboxCredentials(ctx context.Context, userID int64) (delivery.Credentials, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return delivery.Credentials{}, err
	}
	password, ok := s.cipher.TryDecrypt(user.MailboxSecret, userID)
	if !ok {
		return delivery.Credentials{}, fmt.Errorf("%w: mailbox secret unreadable, log in again", common.ErrorUnauthorized)
	}
	return delivery.Credentials{Username: user.Email, Password: password}, nil
}

// --- helpers below ---

// PurgeExpiredTokens drops refresh tokens that expired before now.
func (s *UserService) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	return s.repomanager.RefreshTokens(s.repomanager.Conn()).DeleteExpired(ctx, now)
}

func (s *UserService) generateAccessToken(userID int64) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID int64, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
