package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"time"

	"github.com/rotisserie/eris"
)

// ErrEmptyPayload is returned by Decode for bodies that carry no usable JSON object.
var ErrEmptyPayload = eris.New("provider: empty payload")

// Decode reads a JSON object body. Numbers are kept as json.Number so that
// integers like millisecond timestamps survive without float rounding.
func Decode(r io.Reader) (map[string]any, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "provider: read body")
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, ErrEmptyPayload
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, eris.Wrap(err, "provider: decode body")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, eris.Wrap(ErrEmptyPayload, "provider: trailing data after JSON value")
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, eris.Wrap(ErrEmptyPayload, "provider: body is not a JSON object")
	}
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}
	return raw, nil
}

type normalizer func(raw map[string]any, rec *PriceRecord)

var normalizers = map[ID]normalizer{
	GoldPrice:     normalizeGoldPrice,
	MetalPriceAPI: normalizeRates,
	MetalsAPI:     normalizeRates,
}

// Normalize maps a decoded provider payload onto a PriceRecord. Missing or
// mistyped fields become 0; unknown providers yield an all-zero record.
func Normalize(raw map[string]any, id ID, now time.Time) PriceRecord {
	rec := PriceRecord{
		TimestampMillis: now.UnixMilli(),
		Provider:        id,
	}
	if fn, ok := normalizers[id]; ok && raw != nil {
		fn(raw, &rec)
	}
	return rec
}

// {"items":[{"xauPrice":2685.45,"xagPrice":31.89,"xptPrice":967.5}],"ts":1700000000000}
func normalizeGoldPrice(raw map[string]any, rec *PriceRecord) {
	items, ok := raw["items"].([]any)
	if !ok || len(items) == 0 {
		return
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return
	}
	rec.GoldPerOunce = price(first["xauPrice"])
	rec.SilverPerOunce = price(first["xagPrice"])
	rec.PlatinumPerOunce = price(first["xptPrice"])
	// ts only counts alongside a price item.
	if ts, ok := number(raw["ts"]); ok && ts > 0 {
		rec.TimestampMillis = epochMillis(ts)
	}
}

// {"rates":{"XAU":0.000372,"XAG":0.031,"XPT":0.00103}} where each rate is
// ounces per unit of currency.
func normalizeRates(raw map[string]any, rec *PriceRecord) {
	rates, ok := raw["rates"].(map[string]any)
	if !ok {
		return
	}
	rec.GoldPerOunce = invert(rates["XAU"])
	rec.SilverPerOunce = invert(rates["XAG"])
	rec.PlatinumPerOunce = invert(rates["XPT"])
}

func price(v any) float64 {
	f, ok := number(v)
	if !ok || f < 0 {
		return 0
	}
	return f
}

func invert(v any) float64 {
	f, ok := number(v)
	if !ok || f <= 0 {
		return 0
	}
	return 1 / f
}

// number accepts JSON numbers only; strings and other types are rejected.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// epochMillis treats values below 1e12 as seconds.
func epochMillis(v float64) int64 {
	if v < 1_000_000_000_000 {
		return int64(v * 1000)
	}
	return int64(v)
}
