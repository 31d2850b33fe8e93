// seed inserts the bootstrap data a fresh deployment needs: the admin account
// (ADMIN_EMAIL / ADMIN_PASSWORD), a one-year subscription for it, and a
// starter server node. Idempotent: skips everything if the admin already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"private-network-manager/backend/internal/config"
	"private-network-manager/backend/internal/db"
	"private-network-manager/backend/internal/security"
	servernodedomain "private-network-manager/backend/internal/servernode/domain"
	servernoderepo "private-network-manager/backend/internal/servernode/repository"
	subscriptionrepo "private-network-manager/backend/internal/subscription/repository"
	userdomain "private-network-manager/backend/internal/user/domain"
	userrepo "private-network-manager/backend/internal/user/repository"
)

const seedQuotaBytes = 100 << 30 // 100 GiB

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", cfg.AdminEmail)
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(cfg.AdminPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	admin, err := users.Create(ctx, &userdomain.User{
		Email:        cfg.AdminEmail,
		PasswordHash: passwordHash,
		Role:         userdomain.RoleAdmin,
	})
	if err != nil {
		log.Fatalf("create admin: %v", err)
	}

	now := time.Now().UTC()
	subscriptions := subscriptionrepo.NewPostgresRepository(conn)
	if _, err := subscriptions.Upsert(ctx, admin.ID, now, now.AddDate(1, 0, 0), seedQuotaBytes); err != nil {
		log.Fatalf("create subscription: %v", err)
	}

	servers := servernoderepo.NewPostgresRepository(conn)
	if _, err := servers.Create(ctx, &servernodedomain.ServerNode{
		IP:              "10.0.0.1",
		Region:          "local",
		Status:          servernodedomain.StatusOnline,
		FailoverEnabled: false,
	}); err != nil {
		log.Fatalf("create server: %v", err)
	}

	log.Printf("Seed complete: admin %s (id %d), 1y subscription, 1 online server", admin.Email, admin.ID)
}
