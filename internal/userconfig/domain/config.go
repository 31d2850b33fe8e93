package domain

import "time"

// UserConfig is a rendered network-access configuration artifact produced by a
// provisioning run for a (user, server) pair.
type UserConfig struct {
	ID         int64
	UserID     int64
	ServerID   int64
	ConfigText string
	CreatedAt  time.Time
}
