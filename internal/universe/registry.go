package universe

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
)

// FilePrefix selects a JSON ticker file: "file:data/watchlist.json"
const FilePrefix = "file:"

// Registry resolves universe names to instrument lists
// ⭐ SSOT: 유니버스 이름 해석은 여기서만
type Registry struct {
	index *WikipediaProvider
}

var _ contracts.UniverseProvider = (*Registry)(nil)

// NewRegistry creates a registry. index may be nil, in which case only
// file universes are available.
func NewRegistry(index *WikipediaProvider) *Registry {
	return &Registry{index: index}
}

// List resolves name: sp500 | sp400 | sp600 | sp1500 | file:<path>
func (r *Registry) List(ctx context.Context, name string) ([]contracts.Instrument, error) {
	name = strings.TrimSpace(name)

	switch {
	case name == "":
		return nil, fmt.Errorf("universe name is required")
	case strings.HasPrefix(name, FilePrefix):
		return LoadFile(strings.TrimPrefix(name, FilePrefix))
	case IsIndex(name):
		if r.index == nil {
			return nil, fmt.Errorf("universe %s: index provider not configured", name)
		}
		return r.index.List(ctx, name)
	}

	return nil, fmt.Errorf("unknown universe %q (want %s or %s<path>)", name, strings.Join(Indexes(), ", "), FilePrefix)
}

// Static builds a universe from explicit identifiers, e.g. --tickers AAPL,msft.
// Comma-separated entries are split; order is kept and duplicates dropped.
func Static(symbols []string) []contracts.Instrument {
	seen := make(map[string]struct{})
	out := make([]contracts.Instrument, 0, len(symbols))

	for _, entry := range symbols {
		for _, s := range strings.Split(entry, ",") {
			sym := normalizeSymbol(s)
			if sym == "" {
				continue
			}
			if _, dup := seen[sym]; dup {
				continue
			}
			seen[sym] = struct{}{}
			out = append(out, contracts.Instrument{Symbol: sym})
		}
	}

	return out
}

// Indexes returns the supported index universe names
func Indexes() []string {
	names := make([]string, 0, len(indexPages)+1)
	for name := range indexPages {
		names = append(names, name)
	}
	names = append(names, CompositeIndex)
	sort.Strings(names)
	return names
}

// IsIndex reports whether name is a supported index universe
func IsIndex(name string) bool {
	if name == CompositeIndex {
		return true
	}
	_, ok := indexPages[name]
	return ok
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
