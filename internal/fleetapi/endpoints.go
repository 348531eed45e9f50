package fleetapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"smartfleet/internal/models"
)

// TokenResponse - ответ /token/. Токен может прийти в любом из трёх полей.
type TokenResponse struct {
	Access      string `json:"access"`
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	Refresh     string `json:"refresh"`

	UserID     int64             `json:"user_id"`
	Username   string            `json:"username"`
	FirstName  string            `json:"first_name"`
	LastName   string            `json:"last_name"`
	Department string            `json:"department"`
	Companies  []models.FlexName `json:"companies"`
}

// BearerToken возвращает токен доступа: access || token || access_token.
func (t TokenResponse) BearerToken() string {
	if t.Access != "" {
		return t.Access
	}
	if t.Token != "" {
		return t.Token
	}
	return t.AccessToken
}

// Login аутентифицирует пользователя через POST /token/.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	body := map[string]string{"username": username, "password": password}
	var resp TokenResponse
	if err := c.Request(ctx, http.MethodPost, "/token/", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.BearerToken() == "" {
		return nil, fmt.Errorf("API не вернул токен доступа")
	}
	if resp.Username == "" {
		resp.Username = username
	}
	return &resp, nil
}

// AllTrucks возвращает справочник грузовиков с водителями.
// Формы ответа нормализуются через NormalizeListResponse.
func (c *Client) AllTrucks(ctx context.Context, token string) ([]models.Truck, error) {
	var raw json.RawMessage
	if err := c.Request(ctx, http.MethodGet, "/calculations/all-trucks", token, nil, &raw); err != nil {
		return nil, err
	}

	items := NormalizeListResponse(raw)
	trucks := make([]models.Truck, 0, len(items))
	for _, item := range items {
		var t models.Truck
		if err := json.Unmarshal(item, &t); err != nil {
			log.Printf("fleetapi.AllTrucks: пропущен нечитаемый элемент списка: %v", err)
			continue
		}
		trucks = append(trucks, t)
	}
	return trucks, nil
}

// StatementByDriver возвращает стейтмент водителя за период или nil, если
// стейтмента нет. Ответ может быть массивом (берётся первый элемент) или
// одиночным объектом.
func (c *Client) StatementByDriver(ctx context.Context, token string, driverID int64, startDate, endDate string) (*models.DriverStatement, error) {
	params := url.Values{}
	params.Set("driver", strconv.FormatInt(driverID, 10))
	params.Set("start_date", startDate)
	params.Set("end_date", endDate)

	var raw json.RawMessage
	err := c.Request(ctx, http.MethodGet, "/calculations/statement-by-driver/?"+params.Encode(), token, nil, &raw)
	if err != nil {
		return nil, err
	}

	item := FirstOrObject(raw)
	if item == nil {
		return nil, nil
	}
	var st models.DriverStatement
	if err := json.Unmarshal(item, &st); err != nil {
		return nil, fmt.Errorf("ошибка разбора стейтмента водителя %d: %w", driverID, err)
	}
	return &st, nil
}

// OwnerCalculationQuery - параметры поиска расчётов.
type OwnerCalculationQuery struct {
	Search    string
	StartDate string
	EndDate   string
	Page      int
	PageSize  int
}

// OwnerCalculations возвращает список расчётов по поисковому запросу.
// Ответ может быть массивом или пагинированной обёрткой {results: [...]}.
func (c *Client) OwnerCalculations(ctx context.Context, token string, q OwnerCalculationQuery) ([]models.OwnerCalculation, error) {
	params := url.Values{}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.StartDate != "" {
		params.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		params.Set("end_date", q.EndDate)
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(q.PageSize))
	}

	endpoint := "/calculations/owner-calculation/"
	if enc := params.Encode(); enc != "" {
		endpoint += "?" + enc
	}

	var raw json.RawMessage
	if err := c.Request(ctx, http.MethodGet, endpoint, token, nil, &raw); err != nil {
		return nil, err
	}

	items := NormalizeListResponse(raw)
	calcs := make([]models.OwnerCalculation, 0, len(items))
	for _, item := range items {
		var oc models.OwnerCalculation
		if err := json.Unmarshal(item, &oc); err != nil {
			log.Printf("fleetapi.OwnerCalculations: пропущен нечитаемый расчёт: %v", err)
			continue
		}
		calcs = append(calcs, oc)
	}
	return calcs, nil
}

// UnitPayload - исходящая форма одного юнита внутри расчёта.
// Суммы уходят строками с двумя знаками, note присутствует всегда.
type UnitPayload struct {
	Truck     int64  `json:"truck"`
	Amount    string `json:"amount"`
	Escrow    string `json:"escrow"`
	Driver    string `json:"driver,omitempty"`
	DriverID  int64  `json:"driver_id,omitempty"`
	Statement int64  `json:"statement,omitempty"`
	Note      string `json:"note"`
}

// CalculationPayload - исходящая форма owner calculation.
type CalculationPayload struct {
	Owner     string        `json:"owner"`
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	Units     []UnitPayload `json:"units"`
}

// CreateOwnerCalculation создаёт расчёт (POST на коллекцию).
func (c *Client) CreateOwnerCalculation(ctx context.Context, token string, payload CalculationPayload) (*models.OwnerCalculation, error) {
	var created models.OwnerCalculation
	if err := c.Request(ctx, http.MethodPost, "/calculations/owner-calculation/", token, payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateOwnerCalculation обновляет существующий расчёт (PATCH на ресурс).
func (c *Client) UpdateOwnerCalculation(ctx context.Context, token string, calcID int64, payload CalculationPayload) (*models.OwnerCalculation, error) {
	endpoint := fmt.Sprintf("/calculations/owner-calculation/%d/", calcID)
	var updated models.OwnerCalculation
	if err := c.Request(ctx, http.MethodPatch, endpoint, token, payload, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteOwnerCalculation удаляет расчёт.
func (c *Client) DeleteOwnerCalculation(ctx context.Context, token string, calcID int64) error {
	endpoint := fmt.Sprintf("/calculations/owner-calculation/%d/", calcID)
	return c.Request(ctx, http.MethodDelete, endpoint, token, nil, nil)
}

// CalculationUnits возвращает юниты владельца. owner - числовой id, а при
// его отсутствии имя владельца (бэкенд принимает оба варианта).
func (c *Client) CalculationUnits(ctx context.Context, token, owner string) ([]models.CalculationUnit, error) {
	params := url.Values{}
	params.Set("owner", owner)

	var raw json.RawMessage
	err := c.Request(ctx, http.MethodGet, "/calculations/calculation-unit/?"+params.Encode(), token, nil, &raw)
	if err != nil {
		return nil, err
	}

	items := NormalizeListResponse(raw)
	units := make([]models.CalculationUnit, 0, len(items))
	for _, item := range items {
		var u models.CalculationUnit
		if err := json.Unmarshal(item, &u); err != nil {
			log.Printf("fleetapi.CalculationUnits: пропущен нечитаемый юнит: %v", err)
			continue
		}
		units = append(units, u)
	}
	return units, nil
}

// DeductionPayload - исходящая форма ручного юнита (deduction).
// В отличие от юнитов внутри расчёта, суммы здесь числовые.
type DeductionPayload struct {
	Owner     int64   `json:"owner"`
	Driver    string  `json:"driver"`
	Amount    float64 `json:"amount"`
	Escrow    float64 `json:"escrow"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Truck     int64   `json:"truck,omitempty"`
	Note      string  `json:"note,omitempty"`
	Statement int64   `json:"statement,omitempty"`
}

// CreateCalculationUnit создаёт ручной юнит (deduction).
func (c *Client) CreateCalculationUnit(ctx context.Context, token string, payload DeductionPayload) (*models.CalculationUnit, error) {
	var created models.CalculationUnit
	if err := c.Request(ctx, http.MethodPost, "/calculations/calculation-unit/", token, payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCalculationUnit обновляет существующий юнит (PUT на ресурс).
func (c *Client) UpdateCalculationUnit(ctx context.Context, token string, unitID int64, payload DeductionPayload) (*models.CalculationUnit, error) {
	endpoint := fmt.Sprintf("/calculations/calculation-unit/%d/", unitID)
	var updated models.CalculationUnit
	if err := c.Request(ctx, http.MethodPut, endpoint, token, payload, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCalculationUnit удаляет юнит.
func (c *Client) DeleteCalculationUnit(ctx context.Context, token string, unitID int64) error {
	endpoint := fmt.Sprintf("/calculations/calculation-unit/%d/", unitID)
	return c.Request(ctx, http.MethodDelete, endpoint, token, nil, nil)
}

// Analytics возвращает агрегат по владельцу за период.
func (c *Client) Analytics(ctx context.Context, token, owner, startDate, endDate string) (*models.AnalyticsSummary, error) {
	params := url.Values{}
	params.Set("owner", owner)
	if startDate != "" {
		params.Set("start_date", startDate)
	}
	if endDate != "" {
		params.Set("end_date", endDate)
	}

	var summary models.AnalyticsSummary
	err := c.Request(ctx, http.MethodGet, "/calculations/analytics?"+params.Encode(), token, nil, &summary)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
