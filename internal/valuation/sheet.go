package valuation

import "metalprice/internal/provider"

// SheetRow is one labelled line of a jewellery price sheet.
type SheetRow struct {
	Label   string  `json:"label"`
	PerGram float64 `json:"perGram"`
	// Special rows are approximations that carry a footnote.
	Special bool `json:"special,omitempty"`
}

// SheetSection groups the rows for one metal.
type SheetSection struct {
	Metal Metal      `json:"metal"`
	Rows  []SheetRow `json:"rows"`
}

type sheetLine struct {
	label   string
	purity  float64
	special bool
}

var sheetLines = map[Metal][]sheetLine{
	Gold: {
		{label: "24kt (99.9% pure gold)", purity: 0.999},
		{label: "22kt (91.6% pure gold)", purity: 0.916},
		{label: "21kt (87.5% pure gold)", purity: 0.875},
		{label: "18kt (75.0% pure gold)", purity: 0.750},
		{label: "14kt (58.5% pure)", purity: 0.585},
		{label: "10kt (41.7% pure gold)", purity: 0.417},
		{label: "9kt (37.5% pure gold)", purity: 0.375},
		{label: "Gold Filled Items*", purity: 0.01, special: true},
	},
	Silver: {
		{label: "Sterling Silver Flatware (92.5% pure silver)", purity: 0.925},
		{label: "Sterling Silver Jewellery (92.5% pure silver)", purity: 0.925},
		{label: "Mexican Silver Jewellery (92.5% pure silver)", purity: 0.925},
	},
	Platinum: {
		{label: "999 Platinum (99.9% pure platinum)", purity: 0.999},
		{label: "950 Platinum (95% pure platinum)", purity: 0.95},
	},
}

var premiumLines = []sheetLine{
	{label: "24kt Premium (99.9% pure gold)", purity: 0.999},
	{label: "22kt Premium (91.6% pure gold)", purity: 0.916},
	{label: "21kt Premium (87.5% pure gold)", purity: 0.875},
	{label: "18kt Premium (75.0% pure gold)", purity: 0.750},
	{label: "14kt Premium (58.5% pure gold)", purity: 0.585},
	{label: "10kt Premium (41.7% pure gold)", purity: 0.417},
	{label: "9kt Premium (37.5% pure gold)", purity: 0.375},
}

// GoldFilledNote is the footnote for the special gold row.
const GoldFilledNote = "*Gold Filled Items include any gold-filled items, unstamped lockets and pocket watches."

// Sheet prices every jewellery line for all metals.
func Sheet(rec provider.PriceRecord) []SheetSection {
	out := make([]SheetSection, 0, len(Metals))
	for _, m := range Metals {
		out = append(out, SheetSection{Metal: m, Rows: rows(sheetLines[m], PerGram(m.PerOunce(rec)))})
	}
	return out
}

// PremiumSheet prices the premium gold jewellery lines.
func PremiumSheet(rec provider.PriceRecord) SheetSection {
	return SheetSection{Metal: Gold, Rows: rows(premiumLines, PerGram(rec.GoldPerOunce))}
}

func rows(lines []sheetLine, perGram float64) []SheetRow {
	out := make([]SheetRow, len(lines))
	for i, l := range lines {
		out[i] = SheetRow{Label: l.label, PerGram: perGram * l.purity, Special: l.special}
	}
	return out
}
