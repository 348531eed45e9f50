// internal/config/config.go
package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	FleetAPIBaseURL string // Базовый URL бэкенд-API Smart Fleet
	DatabaseURL     string
	AppEnv          string
	Port            string
	WebAppDir       string // Каталог со статикой дашборда

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Телеграм-уведомления в бухгалтерию (опционально).
	TelegramToken    string
	AccountingChatID int64
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		FleetAPIBaseURL: os.Getenv("FLEET_API_BASE_URL"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		AppEnv:          os.Getenv("ENV"),
		Port:            os.Getenv("PORT"),
		WebAppDir:       os.Getenv("WEBAPP_DIR"),
		TelegramToken:   os.Getenv("TELEGRAM_APITOKEN"),
	}

	if cfg.FleetAPIBaseURL == "" {
		cfg.FleetAPIBaseURL = "https://dev.smartfleetllc.com/api"
		log.Printf("Предупреждение: FLEET_API_BASE_URL не установлен, используется значение по умолчанию %s.", cfg.FleetAPIBaseURL)
	}
	cfg.FleetAPIBaseURL = strings.TrimRight(cfg.FleetAPIBaseURL, "/")

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.WebAppDir == "" {
		cfg.WebAppDir = "webapp"
	}

	var err error
	cfg.AccountingChatID, err = strconv.ParseInt(os.Getenv("ACCOUNTING_CHAT_ID"), 10, 64)
	if err != nil {
		log.Printf("Предупреждение: не удалось прочитать ACCOUNTING_CHAT_ID: %v. Установлено в 0.", err)
		cfg.AccountingChatID = 0
	}

	if cfg.TelegramToken == "" {
		log.Println("Предупреждение: TELEGRAM_APITOKEN не установлен. Уведомления в Telegram отправляться не будут.")
	}

	if cfg.DatabaseURL == "" {
		log.Println("Предупреждение: DATABASE_URL не установлен. Сессии и настройки не переживут рестарт.")
	} else {
		parsedURL, parseErr := url.Parse(cfg.DatabaseURL)
		if parseErr != nil {
			log.Printf("Критическая ошибка: ошибка парсинга DATABASE_URL: %v", parseErr)
		} else {
			cfg.DBHost = parsedURL.Hostname()
			cfg.DBPort = parsedURL.Port()
			if cfg.DBPort == "" {
				cfg.DBPort = "5432"
			}
			cfg.DBUser = parsedURL.User.Username()
			cfg.DBPassword, _ = parsedURL.User.Password()
			cfg.DBName = strings.TrimPrefix(parsedURL.Path, "/")
		}
	}

	log.Println("Конфигурация загружена.")
	return cfg, nil
}
