package entities

import "time"

type ActionStatus string

const (
	ActionScheduled ActionStatus = "scheduled"
	ActionDone      ActionStatus = "done"
)

// DeferredAction is a persisted future deletion of delivered messages. The
// stored record is the source of truth; in-process timers are a cache of it.
type DeferredAction struct {
	ID           string       `db:"id"`
	SessionToken string       `db:"session_token"`
	ChatID       int64        `db:"chat_id"`
	MessageIDs   []int        `db:"-"`
	DueAt        time.Time    `db:"due_at"`
	Status       ActionStatus `db:"status"`
}
