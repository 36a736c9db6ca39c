package main

import (
	"context"
	"flag"
	"os"
	"time"

	"memorial-service/internal/app"
	"memorial-service/internal/auth"
	"memorial-service/internal/config"
	"memorial-service/internal/db"
	"memorial-service/internal/metrics"
	"memorial-service/internal/seed"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	fixturePath := flag.String("file", "configs/seed.yaml", "path to the YAML fixture")
	flag.Parse()

	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Str("service", app.ServiceName).Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	fixture, err := seed.Load(*fixturePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *fixturePath).Msg("failed to load fixture")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	database, err := db.New(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close(database)

	if err := db.RunMigrations(ctx, database, app.Migrations()...); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	m := metrics.NewMock()
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	admins := auth.NewService(auth.NewRepository(database, m), tokens, auth.NewMemoryRevoker(), m)

	if err := seed.Run(ctx, database, admins, fixture, log); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	log.Info().Str("file", *fixturePath).Msg("seed completed")
}
