package contracts

// UnknownSector groups instruments whose sector cannot be determined
const UnknownSector = "Unknown"

// Instrument is one member of a screening universe
// ⭐ SSOT: 유니버스 → 오케스트레이터 전달 단위
type Instrument struct {
	Symbol string `json:"symbol"`
	Sector string `json:"sector,omitempty"`
}

// Symbols returns the identifiers in universe order
func Symbols(instruments []Instrument) []string {
	out := make([]string, len(instruments))
	for i, inst := range instruments {
		out[i] = inst.Symbol
	}
	return out
}
