// Файл: internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"smartfleet/internal/cache"
	"smartfleet/internal/calc"
	"smartfleet/internal/config"
	"smartfleet/internal/constants"
	"smartfleet/internal/db"
	"smartfleet/internal/fleetapi"
	"smartfleet/internal/models"
	"smartfleet/internal/notify"
	"smartfleet/internal/session"
	"smartfleet/internal/utils"
)

// Deps содержит зависимости для обработчиков API.
type Deps struct {
	Config     *config.Config
	Fleet      *fleetapi.Client
	Sessions   *session.Manager
	Cache      *cache.QueryCache
	Reconciler *calc.Reconciler
	Notifier   *notify.Notifier
}

// jsonResponse - вспомогательная структура для стандартного ответа API
type jsonResponse struct {
	Status  string      `json:"status"` // "success" или "error"
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// --- Вспомогательные функции для JSON-ответов ---

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(jsonResponse{Status: "error", Message: message})
}

func writeJSONSuccess(w http.ResponseWriter, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(jsonResponse{Status: "success", Message: message, Data: data})
}

// writeAPIError переводит ошибку в HTTP-ответ: клиентская валидация - 400,
// мёртвая сессия - 401, ошибка бэкенда - 502 с его сообщением.
func writeAPIError(w http.ResponseWriter, err error, fallback string) {
	var vErr calc.ValidationError
	if errors.As(err, &vErr) {
		writeJSONError(w, http.StatusBadRequest, vErr.Error())
		return
	}
	if errors.Is(err, fleetapi.ErrUnauthorized) {
		writeJSONError(w, http.StatusUnauthorized, "Session expired. Please log in again.")
		return
	}
	writeJSONError(w, http.StatusBadGateway, fleetapi.UserMessage(err, fallback))
}

// decodeBody разбирает JSON-тело запроса.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// --- Аутентификация / Authentication ---

// LoginRequest - тело запроса на вход.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// LoginResponse - ответ на успешный вход: наш bearer-токен, профиль и
// сохранённые настройки дашборда.
type LoginResponse struct {
	Token       string         `json:"token"`
	User        models.User    `json:"user"`
	Preferences db.Preferences `json:"preferences"`
}

// Login аутентифицирует пользователя на бэкенде и выдаёт сессию дашборда.
func (d *Deps) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "Username and password are required.")
		return
	}

	tok, err := d.Fleet.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		log.Printf("Login: вход '%s' не удался: %v", req.Username, err)
		writeAPIError(w, err, "Login failed. Please check your credentials.")
		return
	}

	user := models.User{
		UserID:     tok.UserID,
		Username:   tok.Username,
		FirstName:  tok.FirstName,
		LastName:   tok.LastName,
		Department: tok.Department,
		Companies:  tok.Companies,
	}
	sess := d.Sessions.Create(tok.BearerToken(), tok.Refresh, user, req.Remember)
	db.SaveSession(sess)

	writeJSONSuccess(w, "Logged in", LoginResponse{
		Token:       sess.ID,
		User:        user,
		Preferences: db.GetPreferences(user.Username),
	})
}

// Logout отзывает сессию.
func (d *Deps) Logout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	d.Sessions.Revoke(sess.ID)
	db.DeleteSession(sess.ID)
	writeJSONSuccess(w, "Logged out", nil)
}

// Me возвращает профиль текущей сессии.
func (d *Deps) Me(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	writeJSONSuccess(w, "", sess.User)
}

// --- Справочник грузовиков / Truck directory ---

// Trucks возвращает справочник грузовиков владельца. Ответ кэшируется
// на 5 минут с тегом trucks.
func (d *Deps) Trucks(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)

	cacheKey := "trucks:" + sess.Token
	if cached, ok := d.Cache.Get(cacheKey); ok {
		writeJSONSuccess(w, "", cached)
		return
	}

	trucks, err := d.Fleet.AllTrucks(r.Context(), sess.Token)
	if err != nil {
		if errors.Is(err, fleetapi.ErrUnauthorized) {
			writeAPIError(w, err, "Failed to load trucks.")
			return
		}
		// Справочник не критичен: отдаём пустой список с предупреждением.
		log.Printf("Handlers.Trucks: ошибка загрузки справочника грузовиков: %v", err)
		writeJSONSuccess(w, "Failed to load trucks. The list may be incomplete.", []models.Truck{})
		return
	}

	d.Cache.Set(cacheKey, trucks, constants.CACHE_TTL_TRUCKS, constants.CACHE_TAG_TRUCKS)
	writeJSONSuccess(w, "", trucks)
}

// --- Настройки пользователя / User preferences ---

// GetPreferences возвращает сохранённые настройки дашборда.
func (d *Deps) GetPreferences(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	writeJSONSuccess(w, "", db.GetPreferences(sess.User.Username))
}

// SavePreferences сохраняет выбранного владельца и общий период.
func (d *Deps) SavePreferences(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	var prefs db.Preferences
	if !decodeBody(w, r, &prefs) {
		return
	}
	prefs.StartDate = utils.NormalizeDate(prefs.StartDate)
	prefs.EndDate = utils.NormalizeDate(prefs.EndDate)
	db.SavePreferences(sess.User.Username, prefs)
	writeJSONSuccess(w, "Preferences saved", prefs)
}

// --- Аналитика / Analytics ---

// Analytics возвращает агрегат по владельцу за период: totals и разбивку
// по грузовикам.
func (d *Deps) Analytics(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	owner := r.URL.Query().Get("owner")
	startDate := utils.NormalizeDate(r.URL.Query().Get("start_date"))
	endDate := utils.NormalizeDate(r.URL.Query().Get("end_date"))
	if owner == "" {
		writeJSONError(w, http.StatusBadRequest, "Owner is required.")
		return
	}
	if startDate != "" && endDate == "" {
		endDate = utils.DefaultPeriodEnd(startDate)
	}

	cacheKey := "analytics:" + owner + ":" + startDate + ":" + endDate
	if cached, ok := d.Cache.Get(cacheKey); ok {
		writeJSONSuccess(w, "", cached)
		return
	}

	summary, err := d.Fleet.Analytics(r.Context(), sess.Token, owner, startDate, endDate)
	if err != nil {
		writeAPIError(w, err, "Failed to load analytics.")
		return
	}

	d.Cache.Set(cacheKey, summary, constants.CACHE_TTL_DEFAULT, constants.CACHE_TAG_OWNER_CALCULATION)
	writeJSONSuccess(w, "", summary)
}

// --- QR-код стейтмента / Statement QR ---

// StatementQR отдаёт PNG с QR-кодом ссылки на PDF стейтмента для печатной
// формы расчёта.
func (d *Deps) StatementQR(w http.ResponseWriter, r *http.Request) {
	pdfURL := r.URL.Query().Get("url")
	png, err := utils.GenerateStatementQR(pdfURL)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid statement URL.")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(png)
}

// --- Служебное / Housekeeping ---

// StartCleanupLoop запускает периодическую очистку кэша и истекших сессий.
func (d *Deps) StartCleanupLoop() {
	ticker := time.NewTicker(constants.SESSION_CLEANUP_PERIOD)
	go func() {
		for range ticker.C {
			expired := d.Sessions.CleanExpired()
			dbExpired := db.CleanExpiredSessions()
			stale := d.Cache.CleanExpired()
			if expired > 0 || dbExpired > 0 || stale > 0 {
				log.Printf("Cleanup: сессий %d (в базе %d), записей кэша %d.", expired, dbExpired, stale)
			}
		}
	}()
}
