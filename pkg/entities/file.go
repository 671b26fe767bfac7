package entities

type FileKind string

const (
	FileKindPhoto    FileKind = "photo"
	FileKindVideo    FileKind = "video"
	FileKindDocument FileKind = "document"
	FileKindAudio    FileKind = "audio"
	FileKindVoice    FileKind = "voice"
	FileKindText     FileKind = "text"
	FileKindOther    FileKind = "other"
)

// File is one vaulted item of a session. The vault chat+message pair is the
// authoritative redelivery reference; the raw content ref is a transient
// fallback only.
type File struct {
	ID             int64    `db:"id"`
	SessionToken   string   `db:"session_token"`
	Position       int      `db:"position"`
	Kind           FileKind `db:"kind"`
	VaultChatID    int64    `db:"vault_chat_id"`
	VaultMessageID int      `db:"vault_msg_id"`
	RawContentRef  string   `db:"raw_content_ref"`
	Caption        string   `db:"caption"`
}

// Item is a staged submission that has not been copied anywhere yet. It
// references the originally submitted message.
type Item struct {
	Kind            FileKind
	SourceChatID    int64
	SourceMessageID int
	RawContentRef   string
	Caption         string
}

// PlainText reports whether the item is bare text with no attached media.
func (i Item) PlainText() bool {
	return i.Kind == FileKindText
}
