// internal/domain/report/repository.go
package report

import "context"

// Repository defines persistence of reports and their lifecycle.
// Status filters of nil mean "all statuses".
type Repository interface {
	Create(ctx context.Context, r *Report) error // Assigns ID, Status and CreatedAt
	AttachNotificationRef(ctx context.Context, reportID int64, ref string) error
	Advance(ctx context.Context, reportID int64, next Status) (previous Status, err error) // Enforces the transition table
	ForceStatus(ctx context.Context, reportID int64, status Status) error                 // Administrative override, no checks
	Get(ctx context.Context, reportID int64) (*Report, error)
	List(ctx context.Context, status *Status, limit int) ([]*Report, error) // Newest id first
	Stats(ctx context.Context) (map[Status]int, error)                      // Missing keys mean zero
}
