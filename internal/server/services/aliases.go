package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/dmitrijs2005/webmail/internal/server/models"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/aliases"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/repomanager"
	"github.com/emersion/go-message/mail"
)

// aliasAttempts bounds how many random suffixes Create tries before giving up.
const aliasAttempts = 10

const maxAliasName = 100

var aliasNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

type AliasInput struct {
	Name        string `json:"aliasName"`
	ForwardTo   string `json:"forwardTo"`
	Description string `json:"description"`
}

type AliasUpdate struct {
	ForwardTo   *string `json:"forwardTo,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// AliasService manages forwarding aliases. Addresses are generated as
// name.NNNN@domain with a random four digit suffix.
type AliasService struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	domain      string
	now         func() time.Time
	suffix      func() int
}

func NewAliasService(m repomanager.RepositoryManager, domain string, logger logging.Logger) *AliasService {
	return &AliasService{
		repomanager: m,
		logger:      logger,
		domain:      strings.ToLower(strings.TrimSpace(domain)),
		now:         time.Now,
		suffix:      func() int { return 1000 + rand.IntN(9000) },
	}
}

func (s *AliasService) repo() aliases.Repository {
	return s.repomanager.Aliases(s.repomanager.Conn())
}

func (s *AliasService) List(ctx context.Context, userID int64) ([]*models.Alias, error) {
	return s.repo().ListByUser(ctx, userID)
}

func (s *AliasService) Get(ctx context.Context, userID, id int64) (*models.Alias, error) {
	return s.repo().Get(ctx, userID, id)
}

func forwardAddress(v string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(v))
	if err != nil {
		return "", fmt.Errorf("%w: invalid forwarding address %q", common.ErrValidation, v)
	}
	return strings.ToLower(addr.Address), nil
}

// Create generates a unique address from in.Name and stores it active.
func (s *AliasService) Create(ctx context.Context, userID int64, in AliasInput) (*models.Alias, error) {
	name := strings.ToLower(strings.TrimSpace(in.Name))
	if name == "" || len(name) > maxAliasName || !aliasNameRe.MatchString(name) {
		return nil, fmt.Errorf("%w: invalid alias name %q", common.ErrValidation, in.Name)
	}
	forwardTo, err := forwardAddress(in.ForwardTo)
	if err != nil {
		return nil, err
	}

	for i := 0; i < aliasAttempts; i++ {
		full := name + "." + strconv.Itoa(s.suffix()) + "@" + s.domain
		if _, err := mail.ParseAddress(full); err != nil {
			return nil, fmt.Errorf("%w: invalid alias name %q", common.ErrValidation, in.Name)
		}

		a, err := s.repo().Create(ctx, &models.Alias{
			UserID:      userID,
			AliasName:   full,
			ForwardTo:   forwardTo,
			IsActive:    true,
			Description: strings.TrimSpace(in.Description),
		})
		if errors.Is(err, common.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.logger.Info(ctx, "alias created", "user_id", userID, "alias_id", a.ID)
		return a, nil
	}
	return nil, fmt.Errorf("%w: no free address for alias %q", common.ErrAlreadyExists, name)
}

// Update changes the provided fields. The generated address never changes.
func (s *AliasService) Update(ctx context.Context, userID, id int64, upd AliasUpdate) (*models.Alias, error) {
	return s.modify(ctx, userID, id, func(a *models.Alias) error {
		if upd.ForwardTo != nil {
			to, err := forwardAddress(*upd.ForwardTo)
			if err != nil {
				return err
			}
			a.ForwardTo = to
		}
		if upd.Description != nil {
			a.Description = strings.TrimSpace(*upd.Description)
		}
		if upd.IsActive != nil {
			a.IsActive = *upd.IsActive
		}
		return nil
	})
}

func (s *AliasService) ToggleStatus(ctx context.Context, userID, id int64) (*models.Alias, error) {
	return s.modify(ctx, userID, id, func(a *models.Alias) error {
		a.IsActive = !a.IsActive
		return nil
	})
}

func (s *AliasService) modify(ctx context.Context, userID, id int64, fn func(a *models.Alias) error) (*models.Alias, error) {
	repo := s.repo()
	a, err := repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(a); err != nil {
		return nil, err
	}
	a.UpdatedAt = s.now().UTC().Truncate(time.Microsecond)
	if err := repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AliasService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo().Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "alias deleted", "user_id", userID, "alias_id", id)
	return nil
}
