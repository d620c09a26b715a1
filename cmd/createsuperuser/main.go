package main

import (
	"context"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/pageza/recipe-app-api/backend/config"
	"github.com/pageza/recipe-app-api/backend/internal/database"
	"github.com/pageza/recipe-app-api/backend/internal/logging"
	"github.com/pageza/recipe-app-api/backend/internal/service"
)

func main() {
	email := flag.String("email", "", "Superuser email address")
	name := flag.String("name", "", "Superuser display name")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg.Env, cfg.Log)

	// the password is read from the environment so it stays out of shell history
	password := os.Getenv("SUPERUSER_PASSWORD")
	if *email == "" || password == "" {
		log.Fatal("-email and SUPERUSER_PASSWORD are required")
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.RunMigrations(db, cfg.MigrationsDir, log); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	authService := service.NewAuthService(db, cfg.JWTSecret, cfg.JWTTTL, nil)
	user, err := authService.CreateSuperuser(context.Background(), *email, password, *name)
	if err != nil {
		log.WithError(err).Fatal("failed to create superuser")
	}
	log.WithFields(logrus.Fields{"id": user.ID, "email": user.Email}).Info("superuser created")
}
