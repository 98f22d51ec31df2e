package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"guardian_bot/internal/domain/directory"
	"guardian_bot/internal/domain/report"
)

// supergroupPrefix is how the Bot API prefixes supergroup and channel ids.
const supergroupPrefix = "-100"

// MessageLink builds a t.me link to a message. Public chats link by username;
// private supergroups use the /c/ form. Basic groups have no links.
func MessageLink(chatID int64, username string, messageID int) string {
	if username != "" {
		return fmt.Sprintf("https://t.me/%s/%d", username, messageID)
	}
	id := strconv.FormatInt(chatID, 10)
	if !strings.HasPrefix(id, supergroupPrefix) {
		return ""
	}
	return fmt.Sprintf("https://t.me/c/%s/%d", strings.TrimPrefix(id, supergroupPrefix), messageID)
}

// IntroductionReference stores a message as chat id + message id.
func IntroductionReference(chatID int64, messageID int) directory.Reference {
	return directory.MessageReference(strconv.FormatInt(chatID, 10), strconv.Itoa(messageID))
}

// ReferenceLink resolves a stored reference to something a user can open.
func ReferenceLink(ref directory.Reference) string {
	if ref.IsLink() {
		return ref.Location
	}
	chatID, err := strconv.ParseInt(ref.Location, 10, 64)
	if err != nil {
		return ""
	}
	messageID, err := strconv.Atoi(ref.Pointer)
	if err != nil {
		return ""
	}
	return MessageLink(chatID, "", messageID)
}

// ReportArgs is a parsed /report command.
type ReportArgs struct {
	Rule    report.Rule
	Urgency report.Urgency
	Details string
}

// ParseReportArgs reads "<rule> [low|medium|high] [details...]". Urgency
// defaults to medium.
func ParseReportArgs(args []string) (ReportArgs, error) {
	if len(args) == 0 {
		return ReportArgs{}, fmt.Errorf("a rule is required")
	}
	out := ReportArgs{Rule: report.Rule(strings.ToLower(args[0])), Urgency: report.UrgencyMedium}
	rest := args[1:]
	if len(rest) > 0 {
		if u := report.Urgency(strings.ToLower(rest[0])); u.Valid() {
			out.Urgency = u
			rest = rest[1:]
		}
	}
	out.Details = strings.Join(rest, " ")
	return out, nil
}

// ParseIDAndStatus reads "<report_id> <status>".
func ParseIDAndStatus(args []string) (int64, report.Status, error) {
	if len(args) != 2 {
		return 0, "", fmt.Errorf("expected <report_id> <status>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("report id must be a positive number")
	}
	return id, report.Status(strings.ToLower(args[1])), nil
}
