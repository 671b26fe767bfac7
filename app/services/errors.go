package services

import "errors"

var (
	// ErrNoActiveBuffer means a staging operation arrived with no buffer open.
	ErrNoActiveBuffer = errors.New("no active staging buffer")

	// ErrItemExcluded means the buffer's exclude-plain-text policy rejected
	// the item. The caller should inform the submitter and keep accepting
	// further items.
	ErrItemExcluded = errors.New("plain text items are excluded from this buffer")

	// ErrEmptyBuffer means finalize was called on a buffer with no items.
	ErrEmptyBuffer = errors.New("staging buffer is empty")

	// ErrInvalidRetention means the retention duration is out of bounds.
	// The buffer is left intact so the caller can retry with a corrected
	// value.
	ErrInvalidRetention = errors.New("retention duration out of range")

	// ErrVaultUnreachable means the vault channel itself cannot be reached,
	// as opposed to individual items failing to copy.
	ErrVaultUnreachable = errors.New("vault channel unreachable")
)
