package db

import (
	"context"
	"fmt"

	pgxpoolprometheus "github.com/IBM/pgxpoolprometheus"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

type NewDBPoolParams struct {
	DBHost         string
	DBPort         string
	DBName         string
	DBUser         string
	TracingEnabled bool
	// optional, pool stats collector is registered when set
	MetricsRegisterer prometheus.Registerer
}

func NewDBPool(ctx context.Context, params NewDBPoolParams) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s@%s:%s/%s",
		params.DBUser, params.DBHost, params.DBPort, params.DBName,
	)
	poolConfig, err := pgxpool.ParseConfig(connString)
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

	if params.MetricsRegisterer != nil {
		collector := pgxpoolprometheus.NewCollector(pool, map[string]string{"db_name": params.DBName})
		if err := params.MetricsRegisterer.Register(collector); err != nil {
			return nil, fmt.Errorf("register db pool metrics: %w", err)
		}
	}

	return pool, nil
}
