package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"metalprice/internal/fetcher"
	"metalprice/internal/service"
	"metalprice/internal/valuation"
	"metalprice/internal/view"
)

// priceService is the subset of service.Service the handlers use.
type priceService interface {
	Prices(ctx context.Context) (service.Prices, error)
	Refresh(ctx context.Context) (service.Prices, error)
	Calculate(ctx context.Context, req valuation.Request) (view.Calculation, error)
	Sheet(ctx context.Context, premium bool) ([]view.SheetSection, error)
	Status(ctx context.Context) (view.Status, error)
	SetEndpoint(ctx context.Context, url string) error
	Purge(ctx context.Context) error
}

const (
	msgInvalidWeight = "Please enter a valid weight"
	msgFetchFailed   = "Unable to fetch current prices"
	msgNotConfigured = "Price source is not configured. Set an API endpoint URL."
	msgUnknownMetal  = "Unknown metal"
)

func newRouter(svc priceService, gatherer prometheus.Gatherer, timeout time.Duration) http.Handler {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	h := &handlers{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.RequestSize(1 << 20))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Use(middleware.SetHeader("Content-Type", "application/json; charset=utf-8"))

		r.Get("/prices", h.getPrices)
		r.Post("/prices/refresh", h.refreshPrices)
		r.Post("/calculate", h.calculate)
		r.Get("/grades", h.grades)
		r.Get("/sheet", h.sheet)
		r.Get("/status", h.status)
		r.Put("/settings/endpoint", h.setEndpoint)
		r.Delete("/settings", h.purge)
	})
	return r
}

type handlers struct {
	svc priceService
}

func (h *handlers) getPrices(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Prices(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) refreshPrices(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Refresh(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type calculateBody struct {
	Metal       string          `json:"metal"`
	Grade       string          `json:"grade"`
	WeightGrams json.RawMessage `json:"weightGrams"`
}

func (h *handlers) calculate(w http.ResponseWriter, r *http.Request) {
	var b calculateBody
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if b.Metal == "" {
		b.Metal = string(valuation.Gold)
	}
	if b.Grade == "" {
		b.Grade = "24"
	}
	calc, err := h.svc.Calculate(r.Context(), valuation.Request{
		Metal:       b.Metal,
		Grade:       b.Grade,
		WeightGrams: parseWeight(b.WeightGrams),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

// parseWeight accepts a JSON number or a numeric string; anything else is 0.
func parseWeight(raw json.RawMessage) float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

type metalGrades struct {
	Metal  valuation.Metal   `json:"metal"`
	Name   string            `json:"name"`
	Grades []valuation.Grade `json:"grades"`
}

func (h *handlers) grades(w http.ResponseWriter, _ *http.Request) {
	out := make([]metalGrades, 0, len(valuation.Metals))
	for _, m := range valuation.Metals {
		out = append(out, metalGrades{Metal: m, Name: m.Title(), Grades: m.Grades()})
	}
	writeJSON(w, http.StatusOK, out)
}

type sheetResponse struct {
	Sections []view.SheetSection `json:"sections"`
	Note     string              `json:"note,omitempty"`
}

func (h *handlers) sheet(w http.ResponseWriter, r *http.Request) {
	premium, _ := strconv.ParseBool(r.URL.Query().Get("premium"))
	sections, err := h.svc.Sheet(r.Context(), premium)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := sheetResponse{Sections: sections}
	if !premium {
		resp.Note = valuation.GoldFilledNote
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type endpointBody struct {
	URL string `json:"url"`
}

func (h *handlers) setEndpoint(w http.ResponseWriter, r *http.Request) {
	var b endpointBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.svc.SetEndpoint(r.Context(), b.URL); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := h.svc.Status(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handlers) purge(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Purge(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, valuation.ErrInvalidWeight):
		writeMessage(w, http.StatusBadRequest, msgInvalidWeight)
	case errors.Is(err, valuation.ErrUnknownMetal):
		writeMessage(w, http.StatusBadRequest, msgUnknownMetal)
	case errors.Is(err, fetcher.ErrNotConfigured):
		writeMessage(w, http.StatusServiceUnavailable, msgNotConfigured)
	case errors.Is(err, fetcher.ErrFetchFailed):
		writeMessage(w, http.StatusBadGateway, msgFetchFailed)
	default:
		zap.L().Error("server: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
