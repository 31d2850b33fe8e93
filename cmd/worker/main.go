// worker drains the provisioning job queue. Runs WORKER_CONCURRENCY consumers
// against the provision_jobs table; safe to run alongside the API server and
// safe to run more than one of.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"private-network-manager/backend/internal/config"
	"private-network-manager/backend/internal/db"
	"private-network-manager/backend/internal/provision/events"
	"private-network-manager/backend/internal/provision/provisioner"
	"private-network-manager/backend/internal/provision/queue"
	"private-network-manager/backend/internal/provision/worker"
	servernoderepo "private-network-manager/backend/internal/servernode/repository"
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

	producer, err := events.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.ProvisionKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	defer producer.Close()

	if !cfg.ProvisionDryRun {
		log.Println("worker: PROVISION_DRY_RUN=false but no remote provisioner is configured; using dry-run")
	}
	prov := provisioner.NewDryRun(
		userrepo.NewPostgresRepository(conn),
		servernoderepo.NewPostgresRepository(conn),
		subscriptionrepo.NewPostgresRepository(conn),
		userconfigrepo.NewPostgresRepository(conn),
	)

	policy := queue.Policy{
		MaxAttempts:   cfg.ProvisionMaxAttempts,
		BackoffBase:   cfg.BackoffBase(),
		KeepCompleted: 200,
		KeepFailed:    200,
	}
	pool := worker.NewPool(queue.NewPostgresStore(conn), policy, prov, producer, worker.Options{
		Concurrency: cfg.WorkerConcurrency,
	})

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("worker: shutting down...")
	cancel()
	pool.Wait()
	log.Println("worker: stopped")
}
