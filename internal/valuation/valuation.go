// Package valuation converts spot prices into per-gram and purity-adjusted values.
// Values keep full float precision; rounding belongs to the presentation layer.
package valuation

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"metalprice/internal/provider"
)

// TroyOunceGrams is the number of grams in one troy ounce.
const TroyOunceGrams = 31.1035

var (
	ErrInvalidWeight = eris.New("valuation: weight must be greater than zero")
	ErrUnknownMetal  = eris.New("valuation: unknown metal")
)

// Metal is one of the three supported precious metals.
type Metal string

const (
	Gold     Metal = "gold"
	Silver   Metal = "silver"
	Platinum Metal = "platinum"
)

// Metals lists the supported metals in display order.
var Metals = []Metal{Gold, Silver, Platinum}

// Grade is a selectable purity for a metal.
type Grade struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Purity float64 `json:"purity"`
}

var grades = map[Metal][]Grade{
	Gold: {
		{Key: "24", Label: "24 karat", Purity: 0.999},
		{Key: "22", Label: "22 karat", Purity: 0.916},
		{Key: "21", Label: "21 karat", Purity: 0.875},
		{Key: "18", Label: "18 karat", Purity: 0.750},
		{Key: "14", Label: "14 karat", Purity: 0.585},
		{Key: "10", Label: "10 karat", Purity: 0.417},
		{Key: "9", Label: "9 karat", Purity: 0.375},
	},
	Silver: {
		{Key: "sterling", Label: "925 Jewellery", Purity: 0.925},
		{Key: "fine", Label: "925 Flatware", Purity: 0.925},
		{Key: "coin", Label: "925 Mexican", Purity: 0.925},
	},
	Platinum: {
		{Key: "999", Label: "999 Platinum", Purity: 0.999},
		{Key: "950", Label: "950 Platinum", Purity: 0.950},
		{Key: "900", Label: "900 Platinum", Purity: 0.900},
	},
}

// ParseMetal accepts a metal name in any case.
func ParseMetal(s string) (Metal, error) {
	m := Metal(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := grades[m]; !ok {
		return "", eris.Wrapf(ErrUnknownMetal, "%q", s)
	}
	return m, nil
}

// Title is the capitalised metal name.
func (m Metal) Title() string {
	if m == "" {
		return ""
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}

func (m Metal) Grades() []Grade {
	return grades[m]
}

// Purity returns the purity fraction for a grade key. Unknown keys are
// treated as pure metal (1.0).
func (m Metal) Purity(key string) float64 {
	for _, g := range grades[m] {
		if g.Key == key {
			return g.Purity
		}
	}
	return 1.0
}

// PerOunce picks this metal's spot price out of rec.
func (m Metal) PerOunce(rec provider.PriceRecord) float64 {
	switch m {
	case Gold:
		return rec.GoldPerOunce
	case Silver:
		return rec.SilverPerOunce
	case Platinum:
		return rec.PlatinumPerOunce
	}
	return 0
}

// PerGram converts a troy-ounce price to a per-gram price.
func PerGram(perOunce float64) float64 {
	return perOunce / TroyOunceGrams
}

// ValidateWeight rejects zero, negative and non-finite weights.
func ValidateWeight(weightGrams float64) error {
	if !(weightGrams > 0) || math.IsInf(weightGrams, 0) {
		return ErrInvalidWeight
	}
	return nil
}

// ScrapValue is perGram(price) * purity(grade) * weight.
func ScrapValue(metal Metal, grade string, weightGrams float64, rec provider.PriceRecord) (float64, error) {
	if err := ValidateWeight(weightGrams); err != nil {
		return 0, err
	}
	return PerGram(metal.PerOunce(rec)) * metal.Purity(grade) * weightGrams, nil
}

// Request is a scrap calculation input.
type Request struct {
	Metal       string
	Grade       string
	WeightGrams float64
}

// Result is a scrap calculation output. PricePerGram is purity adjusted.
type Result struct {
	Metal        Metal
	Grade        string
	Purity       float64
	WeightGrams  float64
	PricePerGram float64
	Total        float64
}

// Calculate validates req and values it against rec.
func Calculate(req Request, rec provider.PriceRecord) (Result, error) {
	if err := ValidateWeight(req.WeightGrams); err != nil {
		return Result{}, err
	}
	metal, err := ParseMetal(req.Metal)
	if err != nil {
		return Result{}, err
	}
	purity := metal.Purity(req.Grade)
	perGram := PerGram(metal.PerOunce(rec)) * purity
	return Result{
		Metal:        metal,
		Grade:        req.Grade,
		Purity:       purity,
		WeightGrams:  req.WeightGrams,
		PricePerGram: perGram,
		Total:        perGram * req.WeightGrams,
	}, nil
}
