package params

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

const mortgagePayload = `{
  "status": "success",
  "data": {
    "business_path": "mortgage",
    "current_interest_rate": 5.0,
    "property_ownership_ltvs": {
      "no_property": {"ltv": 75.0, "min_down_payment": 25.0},
      "has_property": {"ltv": 50.0, "min_down_payment": 50.0},
      "selling_property": {"ltv": 70.0, "min_down_payment": 30.0}
    },
    "standards": {
      "ltv": {"max_ltv": {"value": 80.0, "type": "percentage", "description": "Maximum LTV ratio"}},
      "dti": {"max_dti": {"value": 42.0, "type": "percentage", "description": "Maximum DTI ratio"}}
    },
    "last_updated": "2024-01-15T10:30:00Z",
    "is_fallback": false
  }
}`

func TestClientFetchSuccess(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("business_path")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mortgagePayload))
	}))
	defer srv.Close()

	client := NewClient(zap.NewNop(), srv.URL+"/api/", time.Second)
	p, err := client.Fetch(context.Background(), Mortgage)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotPath != "/api/v1/calculation-parameters" {
		t.Errorf("unexpected request path %s", gotPath)
	}
	if gotQuery != "mortgage" {
		t.Errorf("unexpected business_path %s", gotQuery)
	}
	if p.CurrentInterestRate != 5.0 {
		t.Errorf("expected rate 5.0, got %v", p.CurrentInterestRate)
	}
	if got := p.Ratios().Ratio("has_property"); got != 0.5 {
		t.Errorf("expected has_property ratio 0.5, got %v", got)
	}
	if got := p.StandardValue("ltv", "max_ltv"); got != 80 {
		t.Errorf("expected max_ltv 80, got %v", got)
	}
	if p.LastUpdated == nil || p.LastUpdated.Year() != 2024 {
		t.Errorf("expected last_updated to be parsed, got %v", p.LastUpdated)
	}
}

func TestClientFetchErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		malformed bool
	}{
		{"server error", http.StatusInternalServerError, `{"error":"Internal server error"}`, false},
		{"not found", http.StatusNotFound, ``, false},
		{"invalid json", http.StatusOK, `{not json`, true},
		{"unexpected shape", http.StatusOK, `{"invalid":"response"}`, true},
		{"error status", http.StatusOK, `{"status":"error","message":"db down"}`, true},
		{"missing data", http.StatusOK, `{"status":"success"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(nil, srv.URL, time.Second).Fetch(context.Background(), Mortgage)
			if err == nil {
				t.Fatal("expected error but got nil")
			}
			if errors.Is(err, ErrMalformedResponse) != tt.malformed {
				t.Errorf("expected malformed=%v, got error %v", tt.malformed, err)
			}
		})
	}
}

func TestClientFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	if _, err := NewClient(nil, url, time.Second).Fetch(context.Background(), Credit); err == nil {
		t.Fatal("expected network error but got nil")
	}
}

func TestClientFillsMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"current_interest_rate":8.5}}`))
	}))
	defer srv.Close()

	p, err := NewClient(nil, srv.URL, time.Second).Fetch(context.Background(), Credit)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if p.BusinessPath != Credit {
		t.Errorf("expected business path credit, got %s", p.BusinessPath)
	}
	if p.PropertyOwnershipLTVs == nil {
		t.Error("expected empty ownership table instead of nil")
	}
}

func TestEndpoint(t *testing.T) {
	client := NewClient(nil, "https://bank.example/api/", 0)
	want := "https://bank.example/api/v1/calculation-parameters?business_path=credit_refinance"
	if got := client.Endpoint(CreditRefinance); got != want {
		t.Errorf("Endpoint() = %s, expected %s", got, want)
	}
}
