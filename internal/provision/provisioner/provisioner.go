// Package provisioner applies the actual side effect of a provisioning job:
// materializing a user's network access on a server node.
package provisioner

import "context"

// Provisioner applies the configuration for a user on a server. The operation
// must tolerate being re-applied for the same pair: at-least-once delivery
// means a crash after the side effect but before the ack re-runs it.
type Provisioner interface {
	Provision(ctx context.Context, userID, serverID int64) error
}
