// Package portfolio binds the business endpoints of the data service. The
// payloads belong to the presentation layer, so they travel as raw JSON.
package portfolio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// Transport is the part of api.Client the data binding needs.
type Transport interface {
	Do(ctx context.Context, method, path string, query url.Values, in, out any) error
}

// Params are the optimisation inputs shared by several endpoints.
type Params struct {
	Risk      float64 `json:"risk"`
	Amount    float64 `json:"amount"`
	Time      int     `json:"time"`
	NumAssets int     `json:"num_assets"`
}

// Allocation is the simulation input: ticker weights plus amount and horizon.
type Allocation struct {
	Weights map[string]float64 `json:"weights"`
	Amount  float64            `json:"amount"`
	Time    int                `json:"time"`
}

type Service struct {
	transport Transport
}

func NewService(t Transport) *Service {
	return &Service{transport: t}
}

func (s *Service) post(ctx context.Context, path string, in any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := s.transport.Do(ctx, http.MethodPost, path, nil, in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchStockData returns cached market data; refresh asks the backend to
// rebuild its cache first.
func (s *Service) FetchStockData(ctx context.Context, refresh bool) (json.RawMessage, error) {
	var out json.RawMessage
	q := url.Values{"refresh": {strconv.FormatBool(refresh)}}
	if err := s.transport.Do(ctx, http.MethodGet, "/portfolio/fetch-data", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Optimize(ctx context.Context, p Params) (json.RawMessage, error) {
	return s.post(ctx, "/portfolio/optimize", p)
}

func (s *Service) OptimizeClassical(ctx context.Context, p Params) (json.RawMessage, error) {
	return s.post(ctx, "/portfolio/classical", p)
}

func (s *Service) Compare(ctx context.Context, p Params) (json.RawMessage, error) {
	return s.post(ctx, "/portfolio/comparison", p)
}

func (s *Service) StockInfo(ctx context.Context, tickers []string) (json.RawMessage, error) {
	return s.post(ctx, "/portfolio/info", map[string][]string{"tickers": tickers})
}

func (s *Service) Simulate(ctx context.Context, a Allocation) (json.RawMessage, error) {
	return s.post(ctx, "/portfolio/monte-carlo", a)
}

func (s *Service) TableData(ctx context.Context, a Allocation) (json.RawMessage, error) {
	return s.post(ctx, "/portfolio/table-data", a)
}
