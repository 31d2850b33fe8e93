// server runs the HTTP API: auth, sessions, and provisioning enqueue.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"private-network-manager/backend/internal/audit"
	auditrepo "private-network-manager/backend/internal/audit/repository"
	authservice "private-network-manager/backend/internal/auth/service"
	"private-network-manager/backend/internal/config"
	"private-network-manager/backend/internal/db"
	"private-network-manager/backend/internal/provision/events"
	"private-network-manager/backend/internal/provision/queue"
	"private-network-manager/backend/internal/security"
	"private-network-manager/backend/internal/server"
	"private-network-manager/backend/internal/server/middleware"
	servernoderepo "private-network-manager/backend/internal/servernode/repository"
	sessionrepo "private-network-manager/backend/internal/session/repository"
	subscriptionrepo "private-network-manager/backend/internal/subscription/repository"
	userrepo "private-network-manager/backend/internal/user/repository"
	userconfigrepo "private-network-manager/backend/internal/userconfig/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	tokens := security.NewTokenProvider(
		[]byte(cfg.JWTAccessSecret), []byte(cfg.JWTRefreshSecret),
		cfg.AccessTTL(), cfg.RefreshTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	users := userrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	servers := servernoderepo.NewPostgresRepository(conn)

	producer, err := events.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.ProvisionKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	defer producer.Close()

	policy := queue.Policy{
		MaxAttempts:   cfg.ProvisionMaxAttempts,
		BackoffBase:   cfg.BackoffBase(),
		KeepCompleted: 200,
		KeepFailed:    200,
	}

	auditRepo := auditrepo.NewPostgresRepository(conn)
	app := server.NewApp(server.Deps{
		Tokens:        tokens,
		Auth:          authservice.NewAuthService(users, sessions, hasher, tokens),
		Queue:         queue.NewQueue(queue.NewPostgresStore(conn), policy, producer),
		Users:         users,
		Servers:       servers,
		Subscriptions: subscriptionrepo.NewPostgresRepository(conn),
		UserConfigs:   userconfigrepo.NewPostgresRepository(conn),
		Hasher:        hasher,
		AuditRepo:     auditRepo,
		Audit:         audit.NewLogger(auditRepo, middleware.ContextIP),
		Pinger:        conn,
	})

	go func() {
		log.Printf("http server listening on %s", cfg.HTTPAddr)
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down http server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("http server stopped")
}
