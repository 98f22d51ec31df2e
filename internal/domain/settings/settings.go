// internal/domain/settings/settings.go
package settings

import "context"

// KeyScanCompleted marks whether the historical introduction backfill ran.
const KeyScanCompleted = "scan_completed"

// Repository is a small key/value store backed by the 'config' table.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	IsScanCompleted(ctx context.Context) (bool, error)
	MarkScanCompleted(ctx context.Context) error
}
