package entities

import "time"

// User is one row per distinct requester ever seen, used for broadcast
// fan-out and coarse activity stats.
type User struct {
	ID         int64     `db:"id"`
	Name       string    `db:"name"`
	Username   string    `db:"username"`
	FirstSeen  time.Time `db:"first_seen"`
	LastActive time.Time `db:"last_active"`
}

type Stats struct {
	TotalUsers    int `db:"total_users"`
	ActiveUsers   int `db:"active_users"`
	TotalSessions int `db:"total_sessions"`
	TotalFiles    int `db:"total_files"`
}
