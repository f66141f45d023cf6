// Package attachments keeps attachment bytes in per-user storage areas,
// either on the local filesystem or in an S3 bucket.
package attachments

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/webmail/internal/common"
	"github.com/dmitrijs2005/webmail/internal/filex"
	"github.com/google/uuid"
)

// Store is a per-user blob area addressed by generated stored names.
type Store interface {
	// CreateUserArea prepares the user's area. It is idempotent.
	CreateUserArea(ctx context.Context, userID int64) error
	// Save writes data under a new unique name derived from filename.
	Save(ctx context.Context, userID int64, filename string, data []byte) (string, error)
	// Load returns common.ErrorNotFound for a missing file.
	Load(ctx context.Context, userID int64, storedName string) ([]byte, error)
	// Delete reports whether a file was removed.
	Delete(ctx context.Context, userID int64, storedName string) (bool, error)
	Exists(ctx context.Context, userID int64, storedName string) (bool, error)
	UsageBytes(ctx context.Context, userID int64) (int64, error)
	// Cleanup deletes the named files. Failures are logged and skipped.
	Cleanup(ctx context.Context, userID int64, storedNames []string)
}

var nowFunc = time.Now

// StoredName builds "<unixMillis>-<8 hex>-<sanitised base name>".
func StoredName(filename string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strconv.FormatInt(nowFunc().UnixMilli(), 10) + "-" + id + "-" + filex.SanitizeName(filename)
}

// ValidateStoredName rejects names that could leave the user's area.
func ValidateStoredName(name string) error {
	if _, err := filex.SafeJoin("", name); err != nil {
		return fmt.Errorf("%w: invalid stored name %q", common.ErrValidation, name)
	}
	return nil
}
