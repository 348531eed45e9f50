package fleetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client - единственная точка входа для всех запросов к бэкенд-API
// Smart Fleet. Здесь и только здесь происходит подстановка Bearer-токена,
// обработка 401 и нормализация ошибок.
// Client is the single chokepoint for all Smart Fleet API traffic: bearer
// injection, 401 handling and error normalization happen here and only here.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// OnUnauthorized вызывается при ответе 401 с токеном, который был
	// отвергнут. Менеджер сессий регистрирует здесь отзыв сессии.
	OnUnauthorized func(token string)
}

// NewClient создает клиент бэкенд-API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Request выполняет запрос к API и разбирает JSON-ответ в out (если out не
// nil). Поведение повторяет контракт apiRequest дашборда:
//   - токен, если он есть, уходит заголовком Authorization: Bearer;
//   - 401 отзывает токен через OnUnauthorized и возвращает ErrUnauthorized,
//     не пытаясь читать тело;
//   - не-2xx превращается в *APIError с detail/error/message и сырым телом;
//   - DELETE, 204 и пустое тело считаются успешным "нулевым" ответом.
func (c *Client) Request(ctx context.Context, method, endpoint, token string, body interface{}, out interface{}) error {
	url := endpoint
	if !strings.HasPrefix(endpoint, "http") {
		url = c.baseURL + endpoint
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			log.Printf("fleetapi.Request: ошибка маршалинга тела запроса %s %s: %v", method, endpoint, err)
			return fmt.Errorf("ошибка подготовки запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("ошибка создания HTTP-запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method == http.MethodPost {
		// Ключ идемпотентности на случай сетевых повторов.
		req.Header.Set("Idempotence-Key", uuid.New().String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("fleetapi.Request: ошибка выполнения запроса %s %s: %v", method, endpoint, err)
		return fmt.Errorf("ошибка выполнения запроса к API: %w", err)
	}
	defer resp.Body.Close()

	// 401 обрабатывается до какого-либо чтения тела.
	if resp.StatusCode == http.StatusUnauthorized {
		if c.OnUnauthorized != nil {
			c.OnUnauthorized(token)
		}
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.normalizeError(resp)
	}

	if method == http.MethodDelete || resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа API: %w", err)
	}
	if len(bytes.TrimSpace(responseBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(responseBody, out); err != nil {
		// Дашборд молча возвращал null на кривой JSON. Мы хотя бы логируем.
		log.Printf("fleetapi.Request: не удалось разобрать JSON-ответ %s %s: %v", method, endpoint, err)
		return nil
	}
	return nil
}

// normalizeError превращает не-2xx ответ в *APIError.
// Тело разбирается как JSON, а если это не JSON - кладётся целиком в message.
func (c *Client) normalizeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr.Message = "Request failed"
		return apiErr
	}
	apiErr.Raw = string(text)

	trimmed := bytes.TrimSpace(text)
	if len(trimmed) == 0 {
		apiErr.Message = fmt.Sprintf("Request failed with status %d", resp.StatusCode)
		return apiErr
	}

	if jsonErr := json.Unmarshal(trimmed, apiErr); jsonErr != nil {
		apiErr.Message = string(trimmed)
	}
	if apiErr.Detail == "" && apiErr.Err == "" && apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("Request failed with status %d", resp.StatusCode)
	}
	return apiErr
}
