package provider

import "strings"

// ID identifies which upstream JSON shape an endpoint returns.
type ID string

const (
	GoldPrice     ID = "goldprice"
	MetalPriceAPI ID = "metalpriceapi"
	MetalsAPI     ID = "metals-api"
	Unknown       ID = "unknown"
)

// DisplayName is the human label shown on the status page.
func (id ID) DisplayName() string {
	switch id {
	case GoldPrice:
		return "GoldPrice.org"
	case MetalPriceAPI:
		return "MetalPriceAPI.com"
	case MetalsAPI:
		return "Metals-API.com"
	default:
		return "Unknown"
	}
}

// PriceRecord is the normalized shape returned for every provider.
// Prices are per troy ounce in the endpoint's currency; 0 means unavailable.
type PriceRecord struct {
	GoldPerOunce     float64 `json:"gold" msgpack:"gold"`
	SilverPerOunce   float64 `json:"silver" msgpack:"silver"`
	PlatinumPerOunce float64 `json:"platinum" msgpack:"platinum"`
	TimestampMillis  int64   `json:"timestamp" msgpack:"timestamp"`
	Provider         ID      `json:"provider" msgpack:"provider"`
}

// Empty reports whether no metal carries a usable price.
func (r PriceRecord) Empty() bool {
	return r.GoldPerOunce == 0 && r.SilverPerOunce == 0 && r.PlatinumPerOunce == 0
}

type rule struct {
	substr string
	id     ID
}

// Evaluated in order; the first host fragment found in the URL wins.
var detectRules = []rule{
	{substr: "goldprice.org", id: GoldPrice},
	{substr: "metalpriceapi.com", id: MetalPriceAPI},
	{substr: "metals-api.com", id: MetalsAPI},
}

// Detect classifies an endpoint URL by substring. It never fails.
func Detect(url string) ID {
	for _, r := range detectRules {
		if strings.Contains(url, r.substr) {
			return r.id
		}
	}
	return Unknown
}
