package fleetapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestUnauthorizedRevokesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Body must not matter: the token is dead regardless of what the
		// server says alongside the 401.
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`not even json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	var revoked string
	c.OnUnauthorized = func(token string) { revoked = token }

	err := c.Request(context.Background(), http.MethodGet, "/calculations/all-trucks/", "dead-token", nil, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if revoked != "dead-token" {
		t.Errorf("revoked token = %q, want dead-token", revoked)
	}
}

func TestRequestNormalizesErrorBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "detail field", body: `{"detail":"Calculation already exists"}`, want: "Calculation already exists"},
		{name: "error field", body: `{"error":"bad period"}`, want: "bad period"},
		{name: "message field", body: `{"message":"try later"}`, want: "try later"},
		{name: "plain text", body: `gateway exploded`, want: "gateway exploded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL).Request(context.Background(), http.MethodGet, "/x", "tok", nil, nil)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.Error() != tt.want {
				t.Errorf("message = %q, want %q", apiErr.Error(), tt.want)
			}
			if apiErr.Status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", apiErr.Status)
			}
		})
	}
}

func TestRequestSendsBearerAndIdempotenceKey(t *testing.T) {
	var auth, idemKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		idemKey = r.Header.Get("Idempotence-Key")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.Request(context.Background(), http.MethodPost, "/x", "tok", map[string]string{"a": "b"}, nil); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if auth != "Bearer tok" {
		t.Errorf("Authorization = %q, want Bearer tok", auth)
	}
	if idemKey == "" {
		t.Error("POST without Idempotence-Key header")
	}
}

func TestRequestToleratesEmptyAndBadBodies(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "no content", status: http.StatusNoContent, body: ""},
		{name: "empty body", status: http.StatusOK, body: ""},
		{name: "malformed json", status: http.StatusOK, body: `{"broken`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var out map[string]interface{}
			if err := NewClient(srv.URL).Request(context.Background(), http.MethodGet, "/x", "tok", nil, &out); err != nil {
				t.Errorf("Request: %v, want nil (null-result behavior)", err)
			}
		})
	}
}

func TestAllTrucksNormalizesShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bare array", body: `[{"id":11,"unit_number":"305"}]`},
		{name: "trucks wrapper", body: `{"trucks":[{"id":11,"unit_number":"305"}]}`},
		{name: "results wrapper", body: `{"results":[{"id":11,"unit_number":"305"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			trucks, err := NewClient(srv.URL).AllTrucks(context.Background(), "tok")
			if err != nil {
				t.Fatalf("AllTrucks: %v", err)
			}
			if len(trucks) != 1 || trucks[0].TruckID() != 11 || trucks[0].UnitNumber != "305" {
				t.Errorf("trucks = %+v", trucks)
			}
		})
	}
}

func TestStatementByDriverMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	stmt, err := NewClient(srv.URL).StatementByDriver(context.Background(), "tok", 1, "2025-01-06", "2025-01-12")
	if err != nil {
		t.Fatalf("StatementByDriver: %v", err)
	}
	if stmt != nil {
		t.Errorf("statement = %+v, want nil for an empty response", stmt)
	}
}
