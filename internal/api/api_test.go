package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"smartfleet/internal/cache"
	"smartfleet/internal/calc"
	"smartfleet/internal/config"
	"smartfleet/internal/fleetapi"
	"smartfleet/internal/session"
)

// newTestStack spins up a stub upstream API and the dashboard router on
// top of it.
func newTestStack(t *testing.T, upstream http.HandlerFunc) (*httptest.Server, *Deps) {
	t.Helper()
	upstreamSrv := httptest.NewServer(upstream)
	t.Cleanup(upstreamSrv.Close)

	fleet := fleetapi.NewClient(upstreamSrv.URL)
	deps := &Deps{
		Config:     &config.Config{FleetAPIBaseURL: upstreamSrv.URL},
		Fleet:      fleet,
		Sessions:   session.NewManager(),
		Cache:      cache.New(),
		Reconciler: calc.NewReconciler(fleet),
	}

	router := chi.NewRouter()
	SetupRoutes(router, deps)
	dashboard := httptest.NewServer(router)
	t.Cleanup(dashboard.Close)
	return dashboard, deps
}

func stubUpstream(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/token/":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access":     "upstream-tok",
				"username":   "olga",
				"department": "accounting",
			})
		case strings.HasPrefix(r.URL.Path, "/calculations/all-trucks"):
			w.Write([]byte(`{"trucks":[
                {"id":11,"unit_number":"305","driver":[{"id":1,"full_name":"John Doe"}]},
                {"id":12,"unit_number":"418"}
            ]}`))
		case strings.HasPrefix(r.URL.Path, "/calculations/statement-by-driver/"):
			w.Write([]byte(`[{"id":501,"driver":{"id":1,"full_name":"John Doe"},"total_amount":"2500.00","company_name":"Alpha LLC"}]`))
		case r.URL.Path == "/calculations/owner-calculation/" && r.Method == http.MethodGet:
			w.Write([]byte(`{"results":[]}`))
		case r.URL.Path == "/calculations/owner-calculation/" && r.Method == http.MethodPost:
			w.Write([]byte(`{"id":7,"owner":"Smith Trucking","start_date":"2025-01-06","end_date":"2025-01-12"}`))
		default:
			t.Logf("unexpected upstream call: %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func doJSON(t *testing.T, method, url, token string, body interface{}) (*http.Response, jsonResponse) {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &reqBody)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var parsed jsonResponse
	json.NewDecoder(resp.Body).Decode(&parsed)
	resp.Body.Close()
	return resp, parsed
}

func login(t *testing.T, dashboard *httptest.Server) string {
	t.Helper()
	resp, parsed := doJSON(t, http.MethodPost, dashboard.URL+"/api/login", "", map[string]interface{}{
		"username": "olga", "password": "secret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, message %q", resp.StatusCode, parsed.Message)
	}
	data, _ := parsed.Data.(map[string]interface{})
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

func TestLoginAndAuthMiddleware(t *testing.T) {
	dashboard, _ := newTestStack(t, stubUpstream(t))
	token := login(t, dashboard)

	// Without a token the API is closed.
	resp, _ := doJSON(t, http.MethodGet, dashboard.URL+"/api/trucks", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated /api/trucks status = %d, want 401", resp.StatusCode)
	}

	resp, parsed := doJSON(t, http.MethodGet, dashboard.URL+"/api/trucks", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/trucks status = %d", resp.StatusCode)
	}
	trucks, _ := parsed.Data.([]interface{})
	if len(trucks) != 2 {
		t.Errorf("trucks = %d, want 2", len(trucks))
	}
}

func TestDraftFlowEndToEnd(t *testing.T) {
	dashboard, _ := newTestStack(t, stubUpstream(t))
	token := login(t, dashboard)

	if resp, parsed := doJSON(t, http.MethodPut, dashboard.URL+"/api/draft/owner", token,
		map[string]string{"owner": "Smith Trucking"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("set owner: %d %q", resp.StatusCode, parsed.Message)
	}
	if resp, parsed := doJSON(t, http.MethodPut, dashboard.URL+"/api/draft/period", token,
		map[string]string{"start_date": "2025-01-06"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("set period: %d %q", resp.StatusCode, parsed.Message)
	}

	// Add the truck with a driver: the statement populates the unit.
	resp, parsed := doJSON(t, http.MethodPost, dashboard.URL+"/api/draft/units", token,
		map[string]int64{"truck_id": 11})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add unit: %d %q", resp.StatusCode, parsed.Message)
	}
	unit, _ := parsed.Data.(map[string]interface{})
	if unit["status"] != "fetched" {
		t.Errorf("unit status = %v, want fetched", unit["status"])
	}
	if unit["amount"] != "2500" && unit["amount"] != "2500.00" {
		t.Errorf("unit amount = %v", unit["amount"])
	}

	// Adding the same truck twice is rejected.
	if resp, _ := doJSON(t, http.MethodPost, dashboard.URL+"/api/draft/units", token,
		map[string]int64{"truck_id": 11}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate add status = %d, want 400", resp.StatusCode)
	}

	// Submit creates a new calculation upstream.
	resp, parsed = doJSON(t, http.MethodPost, dashboard.URL+"/api/draft/submit", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: %d %q", resp.StatusCode, parsed.Message)
	}
	if !strings.Contains(parsed.Message, "created") {
		t.Errorf("submit message = %q", parsed.Message)
	}

	// The draft is gone after a successful submit.
	_, parsed = doJSON(t, http.MethodGet, dashboard.URL+"/api/draft", token, nil)
	draft, _ := parsed.Data.(map[string]interface{})
	if owner, _ := draft["owner"].(string); owner != "" {
		t.Errorf("draft owner after submit = %q, want empty", owner)
	}
}

func TestSubmitEmptyDraftRejected(t *testing.T) {
	dashboard, _ := newTestStack(t, stubUpstream(t))
	token := login(t, dashboard)

	resp, parsed := doJSON(t, http.MethodPost, dashboard.URL+"/api/draft/submit", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty submit status = %d (%q), want 400", resp.StatusCode, parsed.Message)
	}
}

func TestUpstream401KillsSession(t *testing.T) {
	loggedIn := false
	upstream := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token/" {
			loggedIn = true
			json.NewEncoder(w).Encode(map[string]string{"access": "upstream-tok", "username": "olga"})
			return
		}
		// Every data call is rejected: the upstream token was revoked.
		w.WriteHeader(http.StatusUnauthorized)
	}

	dashboard, deps := newTestStack(t, upstream)
	deps.Fleet.OnUnauthorized = func(token string) {
		deps.Sessions.RevokeByUpstreamToken(token)
	}

	token := login(t, dashboard)
	if !loggedIn {
		t.Fatal("upstream login was not called")
	}

	resp, _ := doJSON(t, http.MethodGet, dashboard.URL+"/api/trucks", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("first call after revocation: status = %d, want 401", resp.StatusCode)
	}

	// The session itself is now dead too.
	resp, _ = doJSON(t, http.MethodGet, dashboard.URL+"/api/me", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("session survived upstream 401: status = %d", resp.StatusCode)
	}
}

func TestDeductionResolvePrefill(t *testing.T) {
	dashboard, _ := newTestStack(t, stubUpstream(t))
	token := login(t, dashboard)

	resp, parsed := doJSON(t, http.MethodGet,
		dashboard.URL+"/api/deductions/resolve?truck_id=11&start_date=2025-01-06", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resolve status = %d (%q)", resp.StatusCode, parsed.Message)
	}
	prefill, _ := parsed.Data.(map[string]interface{})
	if prefill["driver"] != "John Doe" {
		t.Errorf("prefill driver = %v, want John Doe", prefill["driver"])
	}
	if prefill["amount"] != "2500.00" {
		t.Errorf("prefill amount = %v, want 2500.00", prefill["amount"])
	}
	if id, _ := prefill["statement_id"].(float64); int64(id) != 501 {
		t.Errorf("prefill statement_id = %v, want 501", prefill["statement_id"])
	}

	// A truck without a driver prefills nothing.
	resp, parsed = doJSON(t, http.MethodGet,
		dashboard.URL+"/api/deductions/resolve?truck_id=12&start_date=2025-01-06", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("driverless resolve status = %d (%q)", resp.StatusCode, parsed.Message)
	}
	prefill, _ = parsed.Data.(map[string]interface{})
	if driver, _ := prefill["driver"].(string); driver != "" {
		t.Errorf("driverless prefill driver = %q, want empty", driver)
	}
}

func TestCreateDeductionAttachesStatement(t *testing.T) {
	var created map[string]interface{}
	base := stubUpstream(t)
	upstream := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/calculations/calculation-unit/" && r.Method == http.MethodPost {
			json.NewDecoder(r.Body).Decode(&created)
			w.Write([]byte(`{"id":900,"driver":"John Doe","amount":"-50.00"}`))
			return
		}
		base(w, r)
	}

	dashboard, _ := newTestStack(t, upstream)
	token := login(t, dashboard)

	resp, parsed := doJSON(t, http.MethodPost, dashboard.URL+"/api/deductions", token, map[string]interface{}{
		"owner_id":   88,
		"driver":     "John Doe",
		"amount":     "-50",
		"start_date": "2025-01-06",
		"truck_id":   11,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create deduction: %d %q", resp.StatusCode, parsed.Message)
	}
	if created == nil {
		t.Fatal("upstream create was not called")
	}
	// The driver's statement for the period was resolved and attached.
	if id, _ := created["statement"].(float64); int64(id) != 501 {
		t.Errorf("created payload statement = %v, want 501", created["statement"])
	}
}

func TestOwnerCalculationsPageSizePassedUpstream(t *testing.T) {
	var gotQuery string
	base := stubUpstream(t)
	upstream := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/calculations/owner-calculation/" && r.Method == http.MethodGet {
			gotQuery = r.URL.RawQuery
			w.Write([]byte(`{"results":[]}`))
			return
		}
		base(w, r)
	}

	dashboard, _ := newTestStack(t, upstream)
	token := login(t, dashboard)

	resp, parsed := doJSON(t, http.MethodGet,
		dashboard.URL+"/api/owner-calculations?search=Smith&page=2&page_size=25", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d (%q)", resp.StatusCode, parsed.Message)
	}
	if !strings.Contains(gotQuery, "page=2") || !strings.Contains(gotQuery, "page_size=25") {
		t.Errorf("upstream query = %q, want page=2 and page_size=25", gotQuery)
	}
}

func TestDeductionValidation(t *testing.T) {
	dashboard, _ := newTestStack(t, stubUpstream(t))
	token := login(t, dashboard)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{name: "missing driver", body: map[string]interface{}{"owner_id": 88, "amount": "-50", "start_date": "2025-01-06"}},
		{name: "zero amount", body: map[string]interface{}{"owner_id": 88, "driver": "John Doe", "amount": "0", "start_date": "2025-01-06"}},
		{name: "missing owner", body: map[string]interface{}{"driver": "John Doe", "amount": "-50", "start_date": "2025-01-06"}},
		{name: "missing start date", body: map[string]interface{}{"owner_id": 88, "driver": "John Doe", "amount": "-50"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, parsed := doJSON(t, http.MethodPost, dashboard.URL+"/api/deductions", token, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d (%q), want 400", resp.StatusCode, parsed.Message)
			}
		})
	}
}
