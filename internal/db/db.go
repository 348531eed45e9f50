// Файл: internal/db/db.go
package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var DB *sql.DB // Глобальная переменная для хранения подключения к БД

// InitDB инициализирует соединение с базой данных и создаёт таблицы.
// Пустой dbURL выключает персистентность: сервис работает, но сессии и
// настройки пользователей живут только в памяти процесса.
func InitDB(dbURL string) error {
	if dbURL == "" {
		log.Println("InitDB: DATABASE_URL не задана, персистентность отключена.")
		return nil
	}

	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	DB.SetMaxOpenConns(20)
	DB.SetMaxIdleConns(10)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("ошибка проверки соединения с базой данных: %v", err)
	}
	log.Println("Успешное подключение к базе данных.")

	createTablesSQL := `
        CREATE TABLE IF NOT EXISTS sessions (
            id TEXT PRIMARY KEY,
            upstream_token TEXT NOT NULL,
            refresh_token TEXT,
            username VARCHAR(150),
            department VARCHAR(100),
            remember BOOLEAN DEFAULT FALSE,
            created_at TIMESTAMP NOT NULL,
            expires_at TIMESTAMP NOT NULL
        );
        CREATE TABLE IF NOT EXISTS user_preferences (
            username VARCHAR(150) PRIMARY KEY,
            selected_owner TEXT,
            start_date VARCHAR(10),
            end_date VARCHAR(10),
            updated_at TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at);
        CREATE INDEX IF NOT EXISTS idx_sessions_upstream_token ON sessions (upstream_token);
    `
	if _, err := DB.Exec(createTablesSQL); err != nil {
		return fmt.Errorf("ошибка создания таблиц: %v", err)
	}

	log.Println("Таблицы базы данных проверены/созданы.")
	return nil
}

// Enabled сообщает, подключена ли база.
func Enabled() bool {
	return DB != nil
}

// CloseDB закрывает соединение с базой данных.
func CloseDB() {
	if DB != nil {
		if err := DB.Close(); err != nil {
			log.Printf("CloseDB: ошибка закрытия соединения: %v", err)
		} else {
			log.Println("Соединение с базой данных закрыто.")
		}
	}
}
