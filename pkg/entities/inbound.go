package entities

// Inbound is a transport-neutral view of an incoming message.
type Inbound struct {
	UserID    int64
	UserName  string
	Username  string
	ChatID    int64
	MessageID int

	Text    string
	Command string // empty if the message is not a command
	Args    string

	// Item is set when the message carries stageable content.
	Item *Item

	// File ids lifted from the replied-to message, for commands that take
	// their payload from a reply.
	ReplyPhotoID    string
	ReplyDocumentID string
}

// Callback is a pressed inline button.
type Callback struct {
	ID        string
	UserID    int64
	ChatID    int64
	MessageID int
	Data      string
}

// Button is one inline keyboard button, either a URL or a callback.
type Button struct {
	Text string
	URL  string
	Data string
}
