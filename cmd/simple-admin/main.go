package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"

	"github.com/tendant/simple-admin/pkg/adminuser"
	adminuserapi "github.com/tendant/simple-admin/pkg/adminuser/api"
	"github.com/tendant/simple-admin/pkg/auth"
)

type DbConfig struct {
	Host     string `env:"ADMIN_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"ADMIN_PG_PORT" env-default:"5432"`
	Database string `env:"ADMIN_PG_DATABASE" env-default:"admin_db"`
	User     string `env:"ADMIN_PG_USER" env-default:"admin"`
	Password string `env:"ADMIN_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"ADMIN_PG_SCHEMA" env-default:"public"`
}

func (d DbConfig) toDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

type Config struct {
	DbConfig                 DbConfig
	PersistenceType          string `env:"PERSISTENCE_TYPE" env-default:"inmem"`
	JwtSecret                string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	AdminRole                string `env:"ADMIN_ROLE" env-default:"admin"`
	SaveUserNamesInLowerCase bool   `env:"SAVE_USERNAMES_LOWERCASE" env-default:"false"`
	AppPort                  int    `env:"APP_PORT" env-default:"4000"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found")
	}

	config := Config{}
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed reading config", "error", err)
		os.Exit(1)
	}

	repo, err := newRepository(config)
	if err != nil {
		slog.Error("Failed creating repository", "persistenceType", config.PersistenceType, "error", err)
		os.Exit(1)
	}

	feature := adminuser.DefaultFeature()
	feature.AdminRole = config.AdminRole
	feature.SaveUserNamesInLowerCase = config.SaveUserNamesInLowerCase

	service, err := adminuser.NewAdminUserService(repo, feature)
	if err != nil {
		slog.Error("Failed creating admin user service", "error", err)
		os.Exit(1)
	}
	slog.Info("Admin user service ready",
		"capabilities", service.Capabilities().Tags(),
		"persistenceType", config.PersistenceType)

	tokenAuth := jwtauth.New("HS256", []byte(config.JwtSecret), nil)
	handle := adminuserapi.NewHandle(service)

	server := app.NewApp(app.WithPort(config.AppPort))
	server.R.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.Verifier(tokenAuth))
		r.Use(auth.AuthUserMiddleware)
		adminuserapi.SecureRoutes(r, handle, feature.AdminRole)
	})

	server.Run()
}

func newRepository(config Config) (adminuser.Repository, error) {
	repoConfig := adminuser.RepositoryConfig{}
	if config.PersistenceType == "postgres" || config.PersistenceType == "postgresql" {
		pool, err := pgxpool.New(context.Background(), config.DbConfig.toDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		repoConfig.Pool = pool
	}
	return adminuser.NewRepository(config.PersistenceType, repoConfig)
}
