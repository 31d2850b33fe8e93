package provisioner

import (
	"context"
	"fmt"
	"log"
	"time"

	servernoderepo "private-network-manager/backend/internal/servernode/repository"
	subscriptionrepo "private-network-manager/backend/internal/subscription/repository"
	userrepo "private-network-manager/backend/internal/user/repository"
	userconfigrepo "private-network-manager/backend/internal/userconfig/repository"
)

// DryRun renders and stores the access configuration artifact without touching
// any remote server. It is the default provisioner; re-running it for the same
// pair just writes a fresh artifact.
type DryRun struct {
	users         userrepo.Repository
	servers       servernoderepo.Repository
	subscriptions subscriptionrepo.Repository
	configs       userconfigrepo.Repository
}

// NewDryRun returns a DryRun provisioner over the given repositories.
func NewDryRun(users userrepo.Repository, servers servernoderepo.Repository, subscriptions subscriptionrepo.Repository, configs userconfigrepo.Repository) *DryRun {
	return &DryRun{users: users, servers: servers, subscriptions: subscriptions, configs: configs}
}

// Provision loads the user, server, and subscription, renders the config text,
// and stores it. A missing user or server is a permanent error; a missing or
// lapsed subscription is rendered into the artifact rather than failing, since
// entitlement was checked at enqueue time.
func (d *DryRun) Provision(ctx context.Context, userID, serverID int64) error {
	user, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("provision user %d: %w", userID, err)
	}
	if user == nil {
		return fmt.Errorf("provision user %d: user not found", userID)
	}
	server, err := d.servers.GetByID(ctx, serverID)
	if err != nil {
		return fmt.Errorf("provision server %d: %w", serverID, err)
	}
	if server == nil {
		return fmt.Errorf("provision server %d: server not found", serverID)
	}

	entitlement := "none"
	if sub, err := d.subscriptions.GetByUser(ctx, userID); err != nil {
		return fmt.Errorf("provision user %d: subscription: %w", userID, err)
	} else if sub != nil {
		entitlement = fmt.Sprintf("until %s, quota %d", sub.ExpiryDate.Format(time.RFC3339), sub.Quota)
	}

	configText := fmt.Sprintf(
		"# network access configuration\nuser = %s\nserver = %s (%s, %s)\nentitlement = %s\nrendered_at = %s\n",
		user.Email, server.IP, server.Region, server.Status, entitlement,
		time.Now().UTC().Format(time.RFC3339))

	if _, err := d.configs.Save(ctx, userID, serverID, configText); err != nil {
		return fmt.Errorf("provision user %d: save config: %w", userID, err)
	}
	log.Printf("provision: dry-run applied user %d on server %d (%s)", userID, serverID, server.IP)
	return nil
}
