// market/instruments.go
package market

// Instrument is a tradable symbol and the price the feed starts it at.
type Instrument struct {
	Symbol string  `json:"symbol" yaml:"symbol" toml:"symbol"`
	Seed   float64 `json:"seed" yaml:"seed" toml:"seed"`
}

// DefaultInstruments seeds the simulated feed when no config overrides it.
var DefaultInstruments = []Instrument{
	{Symbol: "EURUSD", Seed: 1.0845},
	{Symbol: "GBPUSD", Seed: 1.2634},
	{Symbol: "USDJPY", Seed: 148.76},
	{Symbol: "BTCUSD", Seed: 43567.89},
	{Symbol: "ETHUSD", Seed: 2876.34},
	{Symbol: "GOLD", Seed: 2034.56},
}

// Seeds returns the instruments as a symbol -> seed price map.
func Seeds(instruments []Instrument) map[string]float64 {
	out := make(map[string]float64, len(instruments))
	for _, in := range instruments {
		out[in.Symbol] = in.Seed
	}
	return out
}
