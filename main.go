package main

import (
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"smartfleet/internal/api"
	"smartfleet/internal/cache"
	"smartfleet/internal/calc"
	"smartfleet/internal/config"
	"smartfleet/internal/db"
	"smartfleet/internal/fleetapi"
	"smartfleet/internal/notify"
	"smartfleet/internal/session"
)

func main() {
	// --- Блок инициализации ---
	if err := godotenv.Load(); err != nil {
		log.Println("Предупреждение: не удалось загрузить файл .env. Переменные окружения должны быть установлены иным способом.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось загрузить конфигурацию: %v", err)
	}

	if err := db.InitDB(cfg.DatabaseURL); err != nil {
		log.Fatalf("Критическая ошибка: не удалось инициализировать базу данных: %v", err)
	}
	defer db.CloseDB()

	sessionManager := session.NewManager()

	// Восстанавливаем сессии, пережившие рестарт.
	restored, err := db.LoadActiveSessions()
	if err != nil {
		log.Printf("Предупреждение: не удалось восстановить сессии из базы: %v", err)
	}
	for _, sess := range restored {
		sessionManager.Restore(sess)
	}
	if len(restored) > 0 {
		log.Printf("Восстановлено %d сессий из базы.", len(restored))
	}

	fleetClient := fleetapi.NewClient(cfg.FleetAPIBaseURL)
	// Бэкенд ответил 401: отзываем все сессии на этом токене, чтобы
	// следующее обращение пользователя сразу отправило его на логин.
	fleetClient.OnUnauthorized = func(token string) {
		sessionManager.RevokeByUpstreamToken(token)
		db.DeleteSessionsByToken(token)
	}

	notifier := notify.New(cfg.TelegramToken, cfg.AccountingChatID)

	deps := &api.Deps{
		Config:     cfg,
		Fleet:      fleetClient,
		Sessions:   sessionManager,
		Cache:      cache.New(),
		Reconciler: calc.NewReconciler(fleetClient),
		Notifier:   notifier,
	}
	deps.StartCleanupLoop()

	// --- Настройка роутера и Middleware ---
	apiRouter := chi.NewRouter()

	apiRouter.Use(middleware.Logger)
	apiRouter.Use(middleware.Recoverer)
	apiRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.SetupRoutes(apiRouter, deps)

	apiRouter.Get("/", http.RedirectHandler("/webapp/", http.StatusMovedPermanently).ServeHTTP)
	apiRouter.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Статика дашборда
	filesDir := http.Dir(filepath.Clean(cfg.WebAppDir))
	FileServer(apiRouter, "/webapp", filesDir)

	log.Printf("Запуск HTTP-сервера дашборда на порту %s (бэкенд: %s)", cfg.Port, cfg.FleetAPIBaseURL)
	if err := http.ListenAndServe(":"+cfg.Port, apiRouter); err != nil {
		log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: не удалось запустить HTTP-сервер: %v", err)
	}
}

// FileServer для обслуживания статичных файлов
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer не поддерживает шаблоны URL")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		fs := http.StripPrefix(pathPrefix, http.FileServer(root))
		fs.ServeHTTP(w, r)
	})
}
