// Package service is the facade the HTTP API and CLI call into.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"metalprice/internal/fetcher"
	"metalprice/internal/provider"
	"metalprice/internal/store"
	"metalprice/internal/valuation"
	"metalprice/internal/view"
)

// Prices is the current record with its display board.
type Prices struct {
	Record provider.PriceRecord `json:"record"`
	Board  view.Board           `json:"board"`
}

// Service resolves the endpoint, serves cached prices and values scrap.
type Service struct {
	fetcher         *fetcher.Fetcher
	store           store.Store
	defaultEndpoint string
	now             func() time.Time
}

func New(f *fetcher.Fetcher, st store.Store, defaultEndpoint string) *Service {
	return &Service{
		fetcher:         f,
		store:           st,
		defaultEndpoint: strings.TrimSpace(defaultEndpoint),
		now:             time.Now,
	}
}

// Endpoint returns the persisted endpoint, falling back to the configured one.
func (s *Service) Endpoint(ctx context.Context) (string, error) {
	ep, err := s.store.Endpoint(ctx)
	if err != nil {
		return "", err
	}
	if ep = strings.TrimSpace(ep); ep != "" {
		return ep, nil
	}
	return s.defaultEndpoint, nil
}

// SetEndpoint persists a new endpoint. Changing it drops the cached record
// because the slot is not keyed by endpoint.
func (s *Service) SetEndpoint(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	prev, err := s.Endpoint(ctx)
	if err != nil {
		return err
	}
	if err := s.store.SetEndpoint(ctx, url); err != nil {
		return err
	}
	if prev != url {
		s.fetcher.Slot().Invalidate(ctx)
		zap.L().Info("service: endpoint changed",
			zap.String("provider", string(provider.Detect(url))))
	}
	return nil
}

// Record returns the cached or freshly fetched price record.
func (s *Service) Record(ctx context.Context) (provider.PriceRecord, string, error) {
	ep, err := s.Endpoint(ctx)
	if err != nil {
		return provider.PriceRecord{}, "", err
	}
	rec, err := s.fetcher.Fetch(ctx, ep)
	return rec, ep, err
}

// Prices is "get current prices".
func (s *Service) Prices(ctx context.Context) (Prices, error) {
	rec, ep, err := s.Record(ctx)
	if err != nil {
		return Prices{}, err
	}
	return Prices{Record: rec, Board: view.NewBoard(rec, ep)}, nil
}

// Refresh is "fetch now": invalidate and fetch.
func (s *Service) Refresh(ctx context.Context) (Prices, error) {
	ep, err := s.Endpoint(ctx)
	if err != nil {
		return Prices{}, err
	}
	rec, err := s.fetcher.Refresh(ctx, ep)
	if err != nil {
		return Prices{}, err
	}
	return Prices{Record: rec, Board: view.NewBoard(rec, ep)}, nil
}

// Calculate values scrap metal. The weight is validated before prices are looked up.
func (s *Service) Calculate(ctx context.Context, req valuation.Request) (view.Calculation, error) {
	if err := valuation.ValidateWeight(req.WeightGrams); err != nil {
		return view.Calculation{}, err
	}
	if _, err := valuation.ParseMetal(req.Metal); err != nil {
		return view.Calculation{}, err
	}
	rec, ep, err := s.Record(ctx)
	if err != nil {
		return view.Calculation{}, err
	}
	res, err := valuation.Calculate(req, rec)
	if err != nil {
		return view.Calculation{}, err
	}
	return view.NewCalculation(res, ep), nil
}

// Sheet prices the jewellery sheet; premium selects the premium gold lines.
func (s *Service) Sheet(ctx context.Context, premium bool) ([]view.SheetSection, error) {
	rec, ep, err := s.Record(ctx)
	if err != nil {
		return nil, err
	}
	sections := valuation.Sheet(rec)
	if premium {
		sections = []valuation.SheetSection{valuation.PremiumSheet(rec)}
	}
	return view.NewSheet(sections, ep), nil
}

// Status reports configuration and cache state without fetching.
func (s *Service) Status(ctx context.Context) (view.Status, error) {
	ep, err := s.Endpoint(ctx)
	if err != nil {
		return view.Status{}, err
	}
	entry, ok := s.fetcher.Slot().Entry()
	return view.NewStatus(ep, entry, ok, s.now()), nil
}

// Purge clears the persisted endpoint and every cached price.
func (s *Service) Purge(ctx context.Context) error {
	s.fetcher.Slot().Invalidate(ctx)
	if err := s.store.Purge(ctx); err != nil {
		return eris.Wrap(err, "service: purge")
	}
	return nil
}
