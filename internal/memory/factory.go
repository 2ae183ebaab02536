package memory

import (
	"context"
	"strings"
)

// NewStore creates a postgres-backed store when a database URL is
// configured, otherwise the default file-per-user store.
func NewStore(ctx context.Context, databaseURL, storagePath string) (Store, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return NewPostgresStore(ctx, databaseURL)
	}
	return NewFileStore(storagePath)
}
