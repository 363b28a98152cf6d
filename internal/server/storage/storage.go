// Package storage keeps attachment bytes and wrapped OA files under opaque
// keys such as "docfiles/{owner}/{nonce}.pdf".
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dmitrijs2005/tradeportal/internal/common"
)

// BlobStore is implemented by S3Store, DiskStore and MemoryStore.
// Get returns common.ErrorNotFound for unknown keys.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// CheckKey rejects keys that are empty, absolute or climb out of the root.
func CheckKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return fmt.Errorf("%w: invalid storage key %q", common.ErrorValidation, key)
	}
	if clean := path.Clean(key); clean != key || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: invalid storage key %q", common.ErrorValidation, key)
	}
	return nil
}
