package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	_ "modernc.org/sqlite"

	emailPkg "academy/internal/adapters/email"
	web "academy/internal/adapters/http"
	paymentPkg "academy/internal/adapters/payment"
	"academy/internal/adapters/storage"
	accountStore "academy/internal/adapters/storage/account"
	courseStore "academy/internal/adapters/storage/course"
	outboxStore "academy/internal/adapters/storage/outbox"
	"academy/internal/application/orchestrators"
	"academy/internal/config"
	"academy/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize database with WAL mode, foreign keys, and busy timeout
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	// Health check
	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	if err := storage.InitDB(db); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	log.Println("Database initialized successfully!")

	// Wrap DB with slow-query logging
	timedDB := storage.NewTimedDB(db, cfg.SlowQueryMs)

	acctStore := accountStore.NewSQLiteStore(timedDB)
	crsStore := courseStore.NewSQLiteStore(timedDB)
	obStore := outboxStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		AccountStore:    acctStore,
		CourseStore:     crsStore,
		MembershipStore: crsStore,
		OutboxStore:     obStore,
	}

	// Seed default admin account if no accounts exist
	seedDeps := orchestrators.CreateAccountDeps{AccountStore: acctStore}
	if err := orchestrators.ExecuteSeedAdmin(context.Background(), seedDeps, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	// Configure email sender
	var sender emailPkg.Sender
	if cfg.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.EmailFrom)
		log.Println("Email sender configured (Resend)")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() {
			log.Println("WARNING: ACADEMY_RESEND_KEY is not set — email delivery is DISABLED in production")
		} else {
			log.Println("Email sender configured (noop — set ACADEMY_RESEND_KEY for real delivery)")
		}
	}

	// Configure payment gateway
	var gw paymentPkg.Gateway
	if cfg.StripeSecretKey != "" {
		gw = paymentPkg.NewStripeGateway(cfg.StripeSecretKey)
		log.Println("Payment gateway configured (Stripe)")
	} else {
		gw = paymentPkg.NewNoopGateway()
		if cfg.IsProduction() {
			log.Println("WARNING: ACADEMY_STRIPE_SECRET_KEY is not set — checkout is DISABLED in production")
		} else {
			log.Println("Payment gateway configured (noop — set ACADEMY_STRIPE_SECRET_KEY for real checkout)")
		}
	}
	web.SetPaymentGateway(gw, orchestrators.BaseURLConfig{
		Local:         cfg.IsLocal(),
		PublicBaseURL: cfg.PublicBaseURL,
		DeployURL:     cfg.DeployURL,
	})

	// Start outbox background worker for confirmation email delivery
	executors := map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeEmail: &orchestrators.ConfirmationEmailExecutor{
			Sender:  sender,
			From:    cfg.EmailFrom,
			ReplyTo: cfg.ReplyTo,
		},
	}
	outboxStopCh := make(chan struct{})
	outboxProcessor := orchestrators.NewOutboxProcessor(obStore, executors)
	orchestrators.StartBackgroundWorker(outboxProcessor, 1*time.Minute, outboxStopCh)
	defer close(outboxStopCh)
	web.SetOutboxProcessor(outboxProcessor)

	// Create HTTP handler with middleware
	csrfKey := web.LoadCSRFKey(cfg.CSRFKey, cfg.IsProduction())
	mux := web.NewMux("static", stores, csrfKey)

	log.Printf("Academy %s starting on %s (env=%s)", version, cfg.Addr, cfg.Env)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
