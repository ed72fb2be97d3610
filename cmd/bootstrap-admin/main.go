package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/tendant/simple-admin/pkg/adminuser"
	"github.com/tendant/simple-admin/pkg/bootstrap"
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
	DbConfig        DbConfig
	PersistenceType string `env:"PERSISTENCE_TYPE" env-default:"postgres"`
	AdminUsername   string `env:"ADMIN_USERNAME" env-default:"admin"`
	AdminEmail      string `env:"ADMIN_EMAIL" env-default:""`
	AdminPassword   string `env:"ADMIN_PASSWORD" env-default:""`
	AdminRole       string `env:"ADMIN_ROLE" env-default:"admin"`
}

func main() {
	username := flag.String("username", "", "Username for the admin user (overrides ADMIN_USERNAME)")
	password := flag.String("password", "", "Password for the admin user (overrides ADMIN_PASSWORD)")
	email := flag.String("email", "", "Email for the admin user (overrides ADMIN_EMAIL)")
	flag.Parse()

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
	if *username != "" {
		config.AdminUsername = *username
	}
	if *password != "" {
		config.AdminPassword = *password
	}
	if *email != "" {
		config.AdminEmail = *email
	}

	repoConfig := adminuser.RepositoryConfig{}
	if config.PersistenceType == "postgres" || config.PersistenceType == "postgresql" {
		pool, err := pgxpool.New(context.Background(), config.DbConfig.toDatabaseURL())
		if err != nil {
			slog.Error("Failed creating database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		repoConfig.Pool = pool
	}

	repo, err := adminuser.NewRepository(config.PersistenceType, repoConfig)
	if err != nil {
		slog.Error("Failed creating repository", "persistenceType", config.PersistenceType, "error", err)
		os.Exit(1)
	}

	feature := adminuser.DefaultFeature()
	feature.AdminRole = config.AdminRole
	service, err := adminuser.NewAdminUserService(repo, feature)
	if err != nil {
		slog.Error("Failed creating admin user service", "error", err)
		os.Exit(1)
	}

	result, err := bootstrap.BootstrapAdminUser(context.Background(), bootstrap.AdminBootstrapConfig{
		AdminUsername: config.AdminUsername,
		AdminEmail:    config.AdminEmail,
		AdminPassword: config.AdminPassword,
		AccessRole:    config.AdminRole,
		Service:       service,
	})
	if err != nil {
		slog.Error("Admin bootstrap failed", "error", err)
		os.Exit(1)
	}

	bootstrap.PrintBootstrapResult(result)
}
