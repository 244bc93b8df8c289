package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultURLTTL is how long signed download URLs stay valid unless the
// caller asks otherwise.
const DefaultURLTTL = time.Hour

// ObjectStore is the narrow file-storage surface the ledger needs: store a
// blob under a key, hand out a time-limited download URL, and delete.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// GenerateKey builds the object key for an uploaded file. Keys are prefixed
// with the owning user so bucket listings stay tenant-scoped:
// users/{userID}/{unixMillis}-{random}{.ext}
func GenerateKey(originalName, userID string) string {
	ext := ""
	if i := strings.LastIndex(originalName, "."); i >= 0 && i < len(originalName)-1 {
		ext = originalName[i:]
	}
	return fmt.Sprintf("users/%s/%d-%s%s", userID, time.Now().UnixMilli(), uuid.New().String(), ext)
}
