package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect строит пул подключений из окружения и проверяет его ping-ом.
// Пул возвращается вызывающему — глобального состояния здесь нет, каждый
// компонент получает его явно.
func Connect(ctx context.Context) (*pgxpool.Pool, error) {
	cfg := NewDBConfigFromEnv()
	if !cfg.Complete() {
		return nil, errors.New("DB config incomplete: DB_USER/DB_HOST/DB_PORT/DB_NAME must be set")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
