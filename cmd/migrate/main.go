package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/pageza/recipe-app-api/backend/config"
	"github.com/pageza/recipe-app-api/backend/internal/database"
	"github.com/pageza/recipe-app-api/backend/internal/logging"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	dir := flag.String("dir", "", "Migrations directory (defaults to db.migrations_dir)")
	wait := flag.Duration("wait", 30*time.Second, "How long to wait for the database to accept connections")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg.Env, cfg.Log)

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = cfg.PostgresDSN()
	}
	migrationsDir := cfg.MigrationsDir
	if *dir != "" {
		migrationsDir = *dir
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	ctx := context.Background()
	if err := waitForDB(ctx, db, *wait, log); err != nil {
		log.WithError(err).Fatal("database unavailable")
	}

	migrator := database.NewMigrator(db, migrationsDir, log)
	if *rollback {
		name, err := migrator.Rollback(ctx)
		if errors.Is(err, database.ErrNoMigrations) {
			log.Info("no migrations to rollback")
			return
		}
		if err != nil {
			log.WithError(err).Fatal("rollback failed")
		}
		log.WithField("migration", name).Info("rolled back migration")
		return
	}

	applied, err := migrator.Up(ctx)
	if err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	log.WithField("count", len(applied)).Info("migrations complete")
}

// waitForDB pings until the database answers or timeout elapses
func waitForDB(ctx context.Context, db *sql.DB, timeout time.Duration, log *logrus.Logger) error {
	deadline := time.Now().Add(timeout)
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		log.WithError(err).Info("database unavailable, waiting 1 second")
		time.Sleep(time.Second)
	}
}
