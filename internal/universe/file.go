package universe

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
)

// fileEntry is the object form of a ticker file element
type fileEntry struct {
	Symbol string `json:"symbol"`
	Ticker string `json:"ticker"`
	Sector string `json:"sector"`
}

// LoadFile reads a JSON list of tickers. Elements are either strings
// ("AAPL") or objects ({"symbol": "AAPL", "sector": "Technology"}).
func LoadFile(path string) ([]contracts.Instrument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}
	return parseList(data, path)
}

func parseList(data []byte, source string) ([]contracts.Instrument, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("universe file %s: expected a JSON list: %w", source, err)
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]contracts.Instrument, 0, len(items))

	for i, raw := range items {
		var inst contracts.Instrument

		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			inst.Symbol = normalizeSymbol(s)
		} else {
			var e fileEntry
			if err := json.Unmarshal(raw, &e); err != nil {
				return nil, fmt.Errorf("universe file %s: element %d: %w", source, i, err)
			}
			sym := e.Symbol
			if sym == "" {
				sym = e.Ticker
			}
			inst.Symbol = normalizeSymbol(sym)
			inst.Sector = strings.TrimSpace(e.Sector)
		}

		if inst.Symbol == "" {
			continue
		}
		if _, dup := seen[inst.Symbol]; dup {
			continue
		}
		seen[inst.Symbol] = struct{}{}
		out = append(out, inst)
	}

	return out, nil
}
