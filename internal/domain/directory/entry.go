// internal/domain/directory/entry.go
package directory

import "time"

// Reference points at a user's introduction. It is either a message location
// (chat + message id) or a single link, in which case Pointer is empty.
type Reference struct {
	Location string
	Pointer  string
}

// MessageReference builds a reference to a message inside a chat.
func MessageReference(location, pointer string) Reference {
	return Reference{Location: location, Pointer: pointer}
}

// LinkReference builds a reference that is just a link.
func LinkReference(link string) Reference {
	return Reference{Location: link}
}

// IsLink reports whether the reference is the single-link variant.
func (r Reference) IsLink() bool {
	return r.Pointer == ""
}

// Entry is the most recent introduction recorded for a user. One per user.
// Corresponds to the 'identity_directory' table.
type Entry struct {
	UserID    int64
	Ref       Reference
	UpdatedAt time.Time
}
