package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iwvelando/ltvcalc/internal/params"
	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/testutil"
	"go.uber.org/zap"
)

type apiResponse struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestHandler(t *testing.T, src params.Source) http.Handler {
	t.Helper()
	return NewHandler(zap.NewNop(), params.NewService(zap.NewNop(), src, nil), constants.DefaultMaxBodySizeBytes, "1.2.3")
}

func liveHandler(t *testing.T) http.Handler {
	return newTestHandler(t, &testutil.StaticSource{Parameters: testutil.SampleParameters(params.Mortgage)})
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp apiResponse
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, resp
}

func TestHandleVersion(t *testing.T) {
	rr := httptest.NewRecorder()
	liveHandler(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode version: %v", err)
	}
	if payload["version"] != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", payload["version"])
	}
}

func TestVersionDefaultsToDev(t *testing.T) {
	h := NewHandler(nil, nil, 0, "  ")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	if !strings.Contains(rr.Body.String(), `"dev"`) {
		t.Fatalf("expected dev version, got %s", rr.Body.String())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	h := liveHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	if id := rr.Header().Get(constants.RequestIDHeader); len(id) != 36 {
		t.Fatalf("expected generated uuid request id, got %q", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set(constants.RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if id := rr.Header().Get(constants.RequestIDHeader); id != "abc-123" {
		t.Fatalf("expected propagated request id, got %q", id)
	}
}

func TestHandleCalculationParameters(t *testing.T) {
	h := liveHandler(t)

	rr, resp := do(t, h, http.MethodGet, "/api/v1/calculation-parameters?business_path=mortgage", "")
	if rr.Code != http.StatusOK || resp.Status != "success" {
		t.Fatalf("expected success, got %d %+v", rr.Code, resp)
	}
	var p params.Parameters
	if err := json.Unmarshal(resp.Data, &p); err != nil {
		t.Fatalf("failed to decode parameters: %v", err)
	}
	if p.CurrentInterestRate != 4.6 || p.IsFallback {
		t.Errorf("expected live parameters, got %+v", p)
	}
	if p.PropertyOwnershipLTVs["has_property"].LTV != 60 {
		t.Errorf("unexpected ownership table %+v", p.PropertyOwnershipLTVs)
	}
}

func TestHandleCalculationParametersBadPath(t *testing.T) {
	h := liveHandler(t)

	for _, target := range []string{
		"/api/v1/calculation-parameters",
		"/api/v1/calculation-parameters?business_path=leasing",
	} {
		rr, resp := do(t, h, http.MethodGet, target, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rr.Code)
		}
		if resp.Status != "error" || resp.Message == "" {
			t.Errorf("%s: expected error envelope, got %+v", target, resp)
		}
	}
}

func TestHandleCalculationParametersFallback(t *testing.T) {
	h := newTestHandler(t, &testutil.StaticSource{Err: errors.New("db down")})

	rr, resp := do(t, h, http.MethodGet, "/api/v1/calculation-parameters?business_path=credit", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("fallbacks must still answer 200, got %d", rr.Code)
	}
	var p params.Parameters
	if err := json.Unmarshal(resp.Data, &p); err != nil {
		t.Fatalf("failed to decode parameters: %v", err)
	}
	if !p.IsFallback || p.CurrentInterestRate != 8.5 {
		t.Errorf("expected credit fallback, got %+v", p)
	}
}

func TestHandleBounds(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		maxLoan  float64
		minDown  float64
		maxDown  float64
		ltvRatio float64
	}{
		{
			name:     "Live has_property ratio",
			body:     `{"priceOfEstate":1000000,"propertyOwnership":"has_property"}`,
			maxLoan:  600000,
			minDown:  400000,
			maxDown:  1000000,
			ltvRatio: 0.6,
		},
		{
			name:     "Unknown ownership uses no_property",
			body:     `{"priceOfEstate":1000000,"propertyOwnership":"renting"}`,
			maxLoan:  750000,
			minDown:  250000,
			maxDown:  1000000,
			ltvRatio: 0.75,
		},
		{
			name:     "Zero price is degenerate",
			body:     `{"priceOfEstate":0,"propertyOwnership":"no_property"}`,
			maxLoan:  1,
			minDown:  0,
			maxDown:  1,
			ltvRatio: 0.75,
		},
	}

	h := liveHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, resp := do(t, h, http.MethodPost, "/api/v1/ltv/bounds", tt.body)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
			}
			var got struct {
				MaxLoan  float64 `json:"maxLoanAmount"`
				MinDown  float64 `json:"minDownPayment"`
				MaxDown  float64 `json:"maxDownPayment"`
				LTVRatio float64 `json:"ltvRatio"`
			}
			if err := json.Unmarshal(resp.Data, &got); err != nil {
				t.Fatalf("failed to decode bounds: %v", err)
			}
			if got.MaxLoan != tt.maxLoan || got.MinDown != tt.minDown || got.MaxDown != tt.maxDown || got.LTVRatio != tt.ltvRatio {
				t.Errorf("unexpected bounds %+v", got)
			}
		})
	}
}

func TestHandleBoundsRejects(t *testing.T) {
	h := liveHandler(t)
	tests := map[string]string{
		"Negative price":   `{"priceOfEstate":-5}`,
		"Unknown path":     `{"priceOfEstate":5,"businessPath":"leasing"}`,
		"Malformed body":   `{"priceOfEstate":`,
		"Wrong field type": `{"priceOfEstate":"a lot"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rr, resp := do(t, h, http.MethodPost, "/api/v1/ltv/bounds", body)
			if rr.Code != http.StatusBadRequest || resp.Status != "error" {
				t.Errorf("expected 400 error envelope, got %d %+v", rr.Code, resp)
			}
		})
	}
}

func TestHandleBoundsBodyTooLarge(t *testing.T) {
	h := NewHandler(zap.NewNop(), nil, 16, "")
	rr, _ := do(t, h, http.MethodPost, "/api/v1/ltv/bounds", `{"priceOfEstate":1000000,"propertyOwnership":"no_property"}`)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestHandleSync(t *testing.T) {
	h := newTestHandler(t, nil)

	body := `{
		"prior": {"propertyOwnership": "no_property", "priceOfEstate": 1000000},
		"values": {"propertyOwnership": "HAS_PROPERTY", "priceOfEstate": 1000000, "initialFee": 250000}
	}`
	rr, resp := do(t, h, http.MethodPost, "/api/v1/ltv/sync", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var got struct {
		Values struct {
			PropertyOwnership string  `json:"propertyOwnership"`
			InitialFee        float64 `json:"initialFee"`
		} `json:"values"`
		Prior struct {
			PropertyOwnership string `json:"propertyOwnership"`
		} `json:"prior"`
		Adjusted bool `json:"adjusted"`
	}
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("failed to decode sync result: %v", err)
	}
	if got.Values.InitialFee != 500000 || !got.Adjusted {
		t.Errorf("expected fee clamped to 500000, got %+v", got)
	}
	if got.Values.PropertyOwnership != "has_property" || got.Prior.PropertyOwnership != "has_property" {
		t.Errorf("expected normalised ownership, got %+v", got)
	}
}

func TestHandleSyncFeeEditIsNotClamped(t *testing.T) {
	h := newTestHandler(t, nil)

	body := `{
		"prior": {"propertyOwnership": "no_property", "priceOfEstate": 1000000},
		"values": {"propertyOwnership": "no_property", "priceOfEstate": 1000000, "initialFee": 10}
	}`
	_, resp := do(t, h, http.MethodPost, "/api/v1/ltv/sync", body)
	if !bytes.Contains(resp.Data, []byte(`"initialFee":10`)) || bytes.Contains(resp.Data, []byte(`"bounds"`)) {
		t.Errorf("fee-only edits must pass through untouched, got %s", resp.Data)
	}
}

func TestHandlePayment(t *testing.T) {
	h := newTestHandler(t, nil)

	rr, resp := do(t, h, http.MethodPost, "/api/v1/mortgage/payment",
		`{"priceOfEstate":1000000,"initialFee":200000,"period":20}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var got struct {
		MonthlyPayment     float64 `json:"monthlyPayment"`
		AnnualRate         float64 `json:"annualRate"`
		RateFromParameters bool    `json:"rateFromParameters"`
		IsFallback         bool    `json:"isFallback"`
	}
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("failed to decode payment: %v", err)
	}
	if got.MonthlyPayment != 5279 || got.AnnualRate != 5 {
		t.Errorf("expected 5279 at 5%%, got %+v", got)
	}
	if !got.RateFromParameters || !got.IsFallback {
		t.Errorf("expected fallback rate from parameters, got %+v", got)
	}

	_, resp = do(t, h, http.MethodPost, "/api/v1/mortgage/payment",
		`{"priceOfEstate":1000000,"initialFee":200000,"period":20,"rate":0}`)
	if !bytes.Contains(resp.Data, []byte(`"monthlyPayment":3333`)) {
		t.Errorf("expected zero-rate payment 3333, got %s", resp.Data)
	}
}

func TestHandlePaymentRejects(t *testing.T) {
	h := newTestHandler(t, nil)
	for _, body := range []string{
		`{"priceOfEstate":1000000,"initialFee":200000,"period":0}`,
		`{"priceOfEstate":1000000,"initialFee":-1,"period":20}`,
		`{"priceOfEstate":1000000,"initialFee":200000,"period":20,"rate":150}`,
	} {
		rr, _ := do(t, h, http.MethodPost, "/api/v1/mortgage/payment", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rr.Code)
		}
	}
}

func TestRouting(t *testing.T) {
	h := liveHandler(t)

	rr, resp := do(t, h, http.MethodGet, "/api/v1/unknown", "")
	if rr.Code != http.StatusNotFound || resp.Status != "error" {
		t.Errorf("expected 404 error envelope, got %d %+v", rr.Code, resp)
	}

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/ltv/bounds"},
		{http.MethodPost, "/api/v1/calculation-parameters"},
		{http.MethodDelete, "/api/v1/mortgage/payment"},
		{http.MethodPost, "/api/version"},
	}
	for _, tt := range tests {
		rr, resp := do(t, h, tt.method, tt.path, "")
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected 405, got %d", tt.method, tt.path, rr.Code)
		}
		if resp.Status != "error" || resp.Message != "method not allowed" {
			t.Errorf("%s %s: expected error envelope, got %+v", tt.method, tt.path, resp)
		}
	}
}

func TestRequestIDFromContext(t *testing.T) {
	if id := RequestIDFromContext(context.Background()); id != "" {
		t.Errorf("expected empty id, got %q", id)
	}
}
