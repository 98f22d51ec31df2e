// internal/domain/guild/config.go
package guild

import (
	"context"
	"database/sql"
	"time"
)

// Config is a community's report routing setup. One per group.
// Corresponds to the 'group_config' table.
type Config struct {
	GroupID           int64
	DestinationChatID int64          // Where report summaries are posted
	EscalationRole    sql.NullString // Mentioned on high urgency reports
}

// Member is a user the bot has seen active in a group.
type Member struct {
	GroupID    int64
	UserID     int64
	LastSeenAt time.Time
}

type ConfigRepository interface {
	Upsert(ctx context.Context, cfg *Config) error
	Get(ctx context.Context, groupID int64) (*Config, error)
}

type MemberRepository interface {
	Touch(ctx context.Context, groupID, userID int64) error
	ListIDs(ctx context.Context, groupID int64) ([]int64, error)
}
