package repository

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Регистрация драйвера PostgreSQL
)

// Параметры пула соединений. Запросы копилок короткие, без долгих
// транзакций, поэтому пул небольшой, а простаивающие соединения
// отдаются обратно довольно быстро.
const (
	poolMaxOpen     = 25
	poolMaxIdle     = 10
	poolMaxLifetime = 30 * time.Minute
	poolMaxIdleTime = 5 * time.Minute
)

// NewPostgresDB открывает подключение к PostgreSQL и настраивает пул.
// sqlx.Connect проверяет соединение сразу, отдельный ping не нужен.
func NewPostgresDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(poolMaxOpen)
	db.SetMaxIdleConns(poolMaxIdle)
	db.SetConnMaxLifetime(poolMaxLifetime)
	db.SetConnMaxIdleTime(poolMaxIdleTime)

	log.Println("[DB] Подключение к PostgreSQL установлено")
	return db, nil
}
