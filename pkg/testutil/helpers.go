// Package testutil provides common utility functions for testing.
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iwvelando/ltvcalc/internal/params"
	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/ltv"
)

// SampleUpdated is the last_updated stamp of SampleParameters.
var SampleUpdated = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// SampleParameters returns live (non-fallback) parameters that differ from
// the fallbacks, so tests can tell the two apart.
func SampleParameters(path params.BusinessPath) params.Parameters {
	updated := SampleUpdated
	return params.Parameters{
		BusinessPath:        path,
		CurrentInterestRate: 4.6,
		PropertyOwnershipLTVs: map[string]ltv.OwnershipLTV{
			"no_property":      {LTV: 75, MinDownPayment: 25},
			"has_property":     {LTV: 60, MinDownPayment: 40},
			"selling_property": {LTV: 70, MinDownPayment: 30},
		},
		Standards: map[string]map[string]params.Standard{
			"ltv": {"max_ltv": {Value: 80, Type: "percentage"}},
		},
		LastUpdated: &updated,
	}
}

// StaticSource answers every fetch with the same parameters or error and
// counts the calls.
type StaticSource struct {
	Parameters params.Parameters
	Err        error
	calls      atomic.Int32
}

// Fetch implements params.Source.
func (s *StaticSource) Fetch(_ context.Context, path params.BusinessPath) (*params.Parameters, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	p := s.Parameters.Clone()
	p.BusinessPath = path
	return &p, nil
}

// Calls returns how many times Fetch ran.
func (s *StaticSource) Calls() int {
	return int(s.calls.Load())
}

// NewParametersServer serves GET /api/v1/calculation-parameters from src
// using the platform's response envelope. The server is closed with the test.
func NewParametersServer(t *testing.T, src params.Source) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/api"+constants.ParametersPath {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(params.Response{Status: constants.ResponseStatusError, Message: "not found"})
			return
		}
		path, err := params.ParseBusinessPath(r.URL.Query().Get("business_path"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(params.Response{Status: constants.ResponseStatusError, Message: err.Error()})
			return
		}
		p, err := src.Fetch(r.Context(), path)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(params.Response{Status: constants.ResponseStatusError, Message: err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(params.Response{Status: constants.ResponseStatusSuccess, Data: p})
	}))
	t.Cleanup(srv.Close)
	return srv
}
