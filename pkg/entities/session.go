package entities

import "time"

// Session is a finalized, immutable batch of vaulted items reachable via one
// access token. After finalization only the revocation flag and the header
// message reference may change.
type Session struct {
	Token            string    `db:"token"`
	OwnerID          int64     `db:"owner_id"`
	CreatedAt        time.Time `db:"created_at"`
	Protect          bool      `db:"protect"`
	RetentionSeconds int64     `db:"retention_seconds"`
	Revoked          bool      `db:"revoked"`

	// RequiredChannel supersedes the process-wide required channels when
	// non-empty.
	RequiredChannel string `db:"required_channel"`

	// Header announcement message in the vault channel, zero until posted.
	HeaderChatID    int64 `db:"header_chat_id"`
	HeaderMessageID int   `db:"header_msg_id"`

	// FileCount is derived, populated on reads.
	FileCount int `db:"file_count"`
}

func (s *Session) Retention() time.Duration {
	return time.Duration(s.RetentionSeconds) * time.Second
}
