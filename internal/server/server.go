// Package server exposes the LTV calculator and its calculation parameters
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/iwvelando/ltvcalc/internal/params"
	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/loans"
	"github.com/iwvelando/ltvcalc/pkg/ltv"
	"github.com/iwvelando/ltvcalc/pkg/mathutil"
	"github.com/iwvelando/ltvcalc/pkg/validation"
	"go.uber.org/zap"
)

// ParametersProvider resolves calculation parameters. *params.Service
// satisfies it.
type ParametersProvider interface {
	Parameters(ctx context.Context, path params.BusinessPath) params.Parameters
}

type handler struct {
	logger      *zap.Logger
	provider    ParametersProvider
	maxBodySize int64
	version     string
}

// NewHandler constructs the HTTP handler that serves the calculator API.
func NewHandler(logger *zap.Logger, provider ParametersProvider, maxBodySize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if provider == nil {
		provider = params.NewService(logger, nil, nil)
	}
	if maxBodySize <= 0 {
		maxBodySize = constants.DefaultMaxBodySizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, provider: provider, maxBodySize: maxBodySize, version: trimmedVersion}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware, h.accessLogMiddleware)

	r.HandleFunc("/api/version", h.handleVersion).Methods(http.MethodGet)
	r.HandleFunc("/api"+constants.ParametersPath, h.handleCalculationParameters).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/ltv/bounds", h.handleBounds).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/ltv/sync", h.handleSync).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/mortgage/payment", h.handlePayment).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, http.StatusNotFound, "route not found", "server.notFound")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, http.StatusMethodNotAllowed, "method not allowed", "server.methodNotAllowed")
	})
	return r
}

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDFromContext returns the request ID assigned by the middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(constants.RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(constants.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (h *handler) accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Info("request served",
			zap.String("op", "server.accessLog"),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type envelope struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type boundsRequest struct {
	PriceOfEstate     float64 `json:"priceOfEstate"`
	PropertyOwnership string  `json:"propertyOwnership"`
	BusinessPath      string  `json:"businessPath"`
}

type syncRequest struct {
	Prior        ltv.Prior      `json:"prior"`
	Values       ltv.FormValues `json:"values"`
	BusinessPath string         `json:"businessPath"`
}

type paymentRequest struct {
	PriceOfEstate float64  `json:"priceOfEstate"`
	InitialFee    float64  `json:"initialFee"`
	Period        int      `json:"period"`
	Rate          *float64 `json:"rate,omitempty"`
	BusinessPath  string   `json:"businessPath"`
}

type paymentResponse struct {
	loans.Quote
	RateFromParameters bool `json:"rateFromParameters"`
	IsFallback         bool `json:"isFallback"`
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleCalculationParameters(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalculationParameters"

	raw := r.URL.Query().Get("business_path")
	if strings.TrimSpace(raw) == "" {
		h.respondError(w, http.StatusBadRequest, "business_path query parameter is required", op)
		return
	}
	path, err := params.ParseBusinessPath(raw)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	p := h.provider.Parameters(r.Context(), path)
	h.writeJSON(w, http.StatusOK, params.Response{
		Status: constants.ResponseStatusSuccess,
		Data:   &p,
	})
}

func (h *handler) handleBounds(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleBounds"

	var req boundsRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	if err := validation.ValidatePrice(req.PriceOfEstate); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	path, ok := h.businessPath(w, req.BusinessPath, op)
	if !ok {
		return
	}

	ratios := h.provider.Parameters(r.Context(), path).Ratios()
	bounds := ltv.ComputeBounds(req.PriceOfEstate, ltv.ParseOwnership(req.PropertyOwnership), ratios)
	if mathutil.IsPositive(bounds.PriceOfEstate) && !bounds.Balanced() {
		h.logger.Error("loan and down payment do not add up to the price",
			zap.String("op", op),
			zap.Float64("price", bounds.PriceOfEstate),
			zap.Float64("max_loan", bounds.MaxLoan),
			zap.Float64("min_down", bounds.MinDown),
		)
	}
	h.writeJSON(w, http.StatusOK, envelope{Status: constants.ResponseStatusSuccess, Data: bounds})
}

func (h *handler) handleSync(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSync"

	var req syncRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	for _, check := range []error{
		validation.ValidatePrice(req.Values.PriceOfEstate),
		validation.ValidateInitialFee(req.Values.InitialFee),
	} {
		if check != nil {
			h.respondError(w, http.StatusBadRequest, check.Error(), op)
			return
		}
	}
	path, ok := h.businessPath(w, req.BusinessPath, op)
	if !ok {
		return
	}

	req.Prior.PropertyOwnership = ltv.ParseOwnership(string(req.Prior.PropertyOwnership))
	req.Values.PropertyOwnership = ltv.ParseOwnership(string(req.Values.PropertyOwnership))

	ratios := h.provider.Parameters(r.Context(), path).Ratios()
	result := ltv.Reduce(req.Prior, req.Values, ratios)
	h.writeJSON(w, http.StatusOK, envelope{Status: constants.ResponseStatusSuccess, Data: result})
}

func (h *handler) handlePayment(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePayment"

	var req paymentRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	checks := []error{
		validation.ValidatePrice(req.PriceOfEstate),
		validation.ValidateInitialFee(req.InitialFee),
		validation.ValidateTerm(req.Period),
	}
	if req.Rate != nil {
		checks = append(checks, validation.ValidateRate(*req.Rate))
	}
	for _, check := range checks {
		if check != nil {
			h.respondError(w, http.StatusBadRequest, check.Error(), op)
			return
		}
	}
	path, ok := h.businessPath(w, req.BusinessPath, op)
	if !ok {
		return
	}

	var (
		resp paymentResponse
		rate float64
	)
	if req.Rate != nil {
		rate = *req.Rate
	} else {
		p := h.provider.Parameters(r.Context(), path)
		rate = p.CurrentInterestRate
		resp.RateFromParameters = true
		resp.IsFallback = p.IsFallback
	}
	resp.Quote = loans.BuildQuote(req.PriceOfEstate, req.InitialFee, rate, req.Period)
	h.writeJSON(w, http.StatusOK, envelope{Status: constants.ResponseStatusSuccess, Data: resp})
}

func (h *handler) businessPath(w http.ResponseWriter, raw, op string) (params.BusinessPath, bool) {
	path, err := params.ParseBusinessPath(raw)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return "", false
	}
	return path, true
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.maxBodySize), op)
			return false
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)
	h.writeJSON(w, status, envelope{Status: constants.ResponseStatusError, Message: msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.String("op", "server.writeJSON"), zap.Error(err))
	}
}
