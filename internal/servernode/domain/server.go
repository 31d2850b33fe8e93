package domain

import "time"

// ServerNode is a network server that users can be provisioned onto.
type ServerNode struct {
	ID              int64
	IP              string
	Region          string
	Status          Status
	FailoverEnabled bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Status is the operational state of a server node.
type Status string

const (
	StatusOnline      Status = "online"
	StatusOffline     Status = "offline"
	StatusMaintenance Status = "maintenance"
)
