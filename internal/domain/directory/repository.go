// internal/domain/directory/repository.go
package directory

import "context"

// Repository is a single-record-per-user store. Upsert is last-write-wins.
type Repository interface {
	Upsert(ctx context.Context, userID int64, ref Reference) error
	Lookup(ctx context.Context, userID int64) (*Entry, error) // Not-found is a normal outcome, see database.ErrDirectoryEntryNotFound
	Count(ctx context.Context) (int, error)
	ListRecent(ctx context.Context, limit int) ([]*Entry, error) // Newest update first
}
