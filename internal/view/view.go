// Package view shapes price records into the values the presentation layer renders.
package view

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"metalprice/internal/currency"
	"metalprice/internal/provider"
	"metalprice/internal/provider/cache"
	"metalprice/internal/valuation"
)

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Amount formats v with thousands separators and exactly two decimals.
func Amount(v float64) string {
	return humanize.FormatFloat("#,###.##", Round2(v))
}

// Money prefixes Amount with the currency symbol, e.g. "EUR € 2,552.65".
func Money(symbol string, v float64) string {
	return symbol + " " + Amount(v)
}

// MetalPrice is one metal's spot price for display.
type MetalPrice struct {
	Metal     valuation.Metal `json:"metal"`
	Name      string          `json:"name"`
	PerOunce  float64         `json:"perOunce"`
	PerGram   float64         `json:"perGram"`
	Available bool            `json:"available"`
	Display   string          `json:"display"`
}

// Board is the topbar and price table data for one record.
type Board struct {
	Currency  string       `json:"currency"`
	Symbol    string       `json:"symbol"`
	Provider  provider.ID  `json:"provider"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Metals    []MetalPrice `json:"metals"`
}

// NewBoard builds the display board. Prices of 0 are marked unavailable.
func NewBoard(rec provider.PriceRecord, endpoint string) Board {
	code := currency.Resolve(endpoint)
	sym := currency.Symbol(code)
	b := Board{
		Currency:  code,
		Symbol:    sym,
		Provider:  rec.Provider,
		UpdatedAt: time.UnixMilli(rec.TimestampMillis).UTC(),
		Metals:    make([]MetalPrice, 0, len(valuation.Metals)),
	}
	for _, m := range valuation.Metals {
		oz := m.PerOunce(rec)
		mp := MetalPrice{
			Metal:     m,
			Name:      m.Title(),
			PerOunce:  Round2(oz),
			PerGram:   Round2(valuation.PerGram(oz)),
			Available: oz > 0,
			Display:   "N/A",
		}
		if mp.Available {
			mp.Display = Money(sym, oz)
		}
		b.Metals = append(b.Metals, mp)
	}
	return b
}

// Calculation is the rounded calculator response.
type Calculation struct {
	TotalValue   float64 `json:"totalValue"`
	PricePerGram float64 `json:"pricePerGram"`
	Metal        string  `json:"metal"`
	Grade        string  `json:"grade"`
	WeightGrams  float64 `json:"weightGrams"`
	Display      string  `json:"display"`
}

func NewCalculation(res valuation.Result, endpoint string) Calculation {
	return Calculation{
		TotalValue:   Round2(res.Total),
		PricePerGram: Round2(res.PricePerGram),
		Metal:        res.Metal.Title(),
		Grade:        res.Grade,
		WeightGrams:  res.WeightGrams,
		Display:      Money(currency.Symbol(currency.Resolve(endpoint)), res.Total),
	}
}

// SheetRow is a rounded jewellery sheet line.
type SheetRow struct {
	Label   string  `json:"label"`
	PerGram float64 `json:"perGram"`
	Display string  `json:"display"`
	Special bool    `json:"special,omitempty"`
}

// SheetSection groups rounded rows for one metal.
type SheetSection struct {
	Metal string     `json:"metal"`
	Rows  []SheetRow `json:"rows"`
}

// NewSheet rounds and labels valuation sheet sections, e.g. "USD $ 86.25/g".
func NewSheet(sections []valuation.SheetSection, endpoint string) []SheetSection {
	sym := currency.Symbol(currency.Resolve(endpoint))
	out := make([]SheetSection, 0, len(sections))
	for _, sec := range sections {
		s := SheetSection{Metal: sec.Metal.Title(), Rows: make([]SheetRow, 0, len(sec.Rows))}
		for _, r := range sec.Rows {
			s.Rows = append(s.Rows, SheetRow{
				Label:   r.Label,
				PerGram: Round2(r.PerGram),
				Display: Money(sym, r.PerGram) + "/g",
				Special: r.Special,
			})
		}
		out = append(out, s)
	}
	return out
}

// Status is the admin overview of the current configuration and cache.
type Status struct {
	Configured   bool        `json:"configured"`
	Provider     provider.ID `json:"provider,omitempty"`
	ProviderName string      `json:"providerName"`
	Currency     string      `json:"currency"`
	Cached       bool        `json:"cached"`
	LastUpdated  *time.Time  `json:"lastUpdated,omitempty"`
	Age          string      `json:"age,omitempty"`
}

// NewStatus describes endpoint and the cache entry as of now.
func NewStatus(endpoint string, entry cache.Entry, cached bool, now time.Time) Status {
	st := Status{ProviderName: "Not configured", Currency: currency.Default}
	if endpoint != "" {
		id := provider.Detect(endpoint)
		st.Configured = true
		st.Provider = id
		st.ProviderName = id.DisplayName()
		st.Currency = currency.Resolve(endpoint)
	}
	if cached {
		at := entry.InsertedAt
		st.Cached = true
		st.LastUpdated = &at
		st.Age = humanize.RelTime(at, now, "ago", "from now")
	}
	return st
}
