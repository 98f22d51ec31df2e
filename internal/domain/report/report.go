// internal/domain/report/report.go
package report

import (
	"database/sql"
	"time"
)

// Report is a moderation report submitted anonymously by a community member.
// Corresponds to the 'reports' table.
type Report struct {
	ID              int64
	GroupID         int64          // Community the report was filed for
	NotificationRef sql.NullString // Where the report summary was posted, set after posting
	TargetUserID    int64
	Rule            Rule
	Details         sql.NullString // Required when Rule is RuleOther
	EvidenceLink    sql.NullString
	Urgency         Urgency
	Status          Status
	CreatedAt       time.Time
}

// Rule is the community rule a report claims was violated.
type Rule string

const (
	RuleSpam          Rule = "spam"
	RuleHarassment    Rule = "harassment"
	RuleHateSpeech    Rule = "hate_speech"
	RuleNSFW          Rule = "nsfw"
	RuleImpersonation Rule = "impersonation"
	RuleAdvertising   Rule = "advertising"
	RuleOther         Rule = "other" // Free-form, Details must describe it
)

var knownRules = []Rule{RuleSpam, RuleHarassment, RuleHateSpeech, RuleNSFW, RuleImpersonation, RuleAdvertising, RuleOther}

// Rules lists every accepted rule label in display order.
func Rules() []Rule {
	out := make([]Rule, len(knownRules))
	copy(out, knownRules)
	return out
}

func (r Rule) Valid() bool {
	for _, k := range knownRules {
		if r == k {
			return true
		}
	}
	return false
}

// Urgency tells moderators how quickly a report needs attention.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}
