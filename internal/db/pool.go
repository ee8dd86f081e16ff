package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	log "github.com/sirupsen/logrus"

	"github.com/musclelog/backend/internal/db/migrations"
)

type NewDBPoolParams struct {
	DBHost         string
	DBPort         string
	DBName         string
	DBUser         string
	DBPassword     string
	TracingEnabled bool
}

func NewDBPool(ctx context.Context, params NewDBPoolParams) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connectionString(params))
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	if params.TracingEnabled {
		poolConfig.ConnConfig.Tracer = otelpgx.NewTracer()
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	return pool, nil
}

// Migrate brings the schema up to date. Runs on startup, before the
// server starts taking requests.
func Migrate(params NewDBPoolParams) error {
	sqlDB, err := sql.Open("pgx", connectionString(params))
	if err != nil {
		return fmt.Errorf("open migration db conn: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Warnf("close migration db conn: %s", err)
		}
	}()

	return migrations.Run(sqlDB)
}

func connectionString(params NewDBPoolParams) string {
	userInfo := url.User(params.DBUser)
	if params.DBPassword != "" {
		userInfo = url.UserPassword(params.DBUser, params.DBPassword)
	}
	u := url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%s", params.DBHost, params.DBPort),
		Path:   params.DBName,
	}
	return u.String()
}
