package attachments

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/filex"
	"github.com/dmitrijs2005/webmail/internal/logging"
)

// LocalStore keeps files under <base>/user_<id>/.
type LocalStore struct {
	base   string
	logger logging.Logger
}

func NewLocalStore(base string, logger logging.Logger) *LocalStore {
	return &LocalStore{base: base, logger: logger}
}

func (s *LocalStore) userDir(userID int64) string {
	return filepath.Join(s.base, "user_"+strconv.FormatInt(userID, 10))
}

func (s *LocalStore) path(userID int64, storedName string) (string, error) {
	if err := ValidateStoredName(storedName); err != nil {
		return "", err
	}
	return filepath.Join(s.userDir(userID), storedName), nil
}

func (s *LocalStore) CreateUserArea(_ context.Context, userID int64) error {
	return filex.EnsureDir(s.userDir(userID))
}

func (s *LocalStore) Save(ctx context.Context, userID int64, filename string, data []byte) (string, error) {
	if err := s.CreateUserArea(ctx, userID); err != nil {
		return "", err
	}

	name := StoredName(filename)
	p, err := s.path(userID, name)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o660)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(p)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return name, nil
}

func (s *LocalStore) Load(_ context.Context, userID int64, storedName string) ([]byte, error) {
	p, err := s.path(userID, storedName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *LocalStore) Delete(_ context.Context, userID int64, storedName string) (bool, error) {
	p, err := s.path(userID, storedName)
	if err != nil {
		return false, err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *LocalStore) Exists(_ context.Context, userID int64, storedName string) (bool, error) {
	p, err := s.path(userID, storedName)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (s *LocalStore) UsageBytes(_ context.Context, userID int64) (int64, error) {
	return filex.DirSize(s.userDir(userID))
}

func (s *LocalStore) Cleanup(ctx context.Context, userID int64, storedNames []string) {
	cleanup(ctx, s, s.logger, userID, storedNames)
}

func cleanup(ctx context.Context, s Store, logger logging.Logger, userID int64, storedNames []string) {
	for _, name := range storedNames {
		removed, err := s.Delete(ctx, userID, name)
		switch {
		case err != nil:
			logger.Warn(ctx, "attachment cleanup failed", "user_id", userID, "file", name, "error", err)
		case !removed:
			logger.Debug(ctx, "attachment already gone", "user_id", userID, "file", name)
		}
	}
}
