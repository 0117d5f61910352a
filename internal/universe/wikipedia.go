package universe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/pkg/fileutil"
	"github.com/ddwolfer/Financial-Assistant/pkg/httputil"
	"github.com/ddwolfer/Financial-Assistant/pkg/logger"
)

// DefaultWikipediaURL is the article root for constituent lists
const DefaultWikipediaURL = "https://en.wikipedia.org/wiki"

// CompositeIndex is the union of the 500, 400 and 600 lists
const CompositeIndex = "sp1500"

var indexPages = map[string]string{
	"sp500": "List_of_S%26P_500_companies",
	"sp400": "List_of_S%26P_400_companies",
	"sp600": "List_of_S%26P_600_companies",
}

var compositeParts = []string{"sp500", "sp400", "sp600"}

// WikipediaProvider scrapes S&P constituent tables and caches them locally
type WikipediaProvider struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	cacheDir   string
	refresh    bool
}

// NewWikipediaProvider creates a provider caching to cacheDir/<name>_tickers.json
func NewWikipediaProvider(httpClient *httputil.Client, cacheDir string, log *logger.Logger) *WikipediaProvider {
	if log == nil {
		log = logger.Nop()
	}
	return &WikipediaProvider{
		httpClient: httpClient,
		logger:     log.WithComponent("universe"),
		baseURL:    DefaultWikipediaURL,
		cacheDir:   cacheDir,
	}
}

// WithBaseURL overrides the article root
func (p *WikipediaProvider) WithBaseURL(u string) *WikipediaProvider {
	p.baseURL = strings.TrimRight(u, "/")
	return p
}

// WithRefresh ignores existing ticker caches and scrapes again
func (p *WikipediaProvider) WithRefresh(refresh bool) *WikipediaProvider {
	p.refresh = refresh
	return p
}

// CachePath returns the ticker cache file for an index
func (p *WikipediaProvider) CachePath(name string) string {
	return filepath.Join(p.cacheDir, name+"_tickers.json")
}

// List returns the constituents of an index, sorted by symbol
func (p *WikipediaProvider) List(ctx context.Context, name string) ([]contracts.Instrument, error) {
	if !IsIndex(name) {
		return nil, fmt.Errorf("unknown index %q", name)
	}

	if cached, ok := p.loadCache(name); ok {
		return cached, nil
	}

	var (
		instruments []contracts.Instrument
		err         error
	)
	if name == CompositeIndex {
		instruments, err = p.composite(ctx)
	} else {
		instruments, err = p.scrape(ctx, indexPages[name])
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s constituents: %w", name, err)
	}

	p.saveCache(name, instruments)
	return instruments, nil
}

func (p *WikipediaProvider) composite(ctx context.Context) ([]contracts.Instrument, error) {
	var all []contracts.Instrument
	for _, part := range compositeParts {
		members, err := p.List(ctx, part)
		if err != nil {
			return nil, err
		}
		all = append(all, members...)
	}
	return sortUnique(all), nil
}

func (p *WikipediaProvider) scrape(ctx context.Context, page string) ([]contracts.Instrument, error) {
	url := fmt.Sprintf("%s/%s", p.baseURL, page)

	p.logger.WithField("url", url).Info("Fetching index constituents")

	resp, err := p.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return ParseConstituents(resp.Body)
}

// ParseConstituents extracts (symbol, GICS sector) rows from a Wikipedia
// constituents table. Class-share dots become dashes (BRK.B → BRK-B).
func ParseConstituents(r io.Reader) ([]contracts.Instrument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	table := doc.Find("table#constituents").First()
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}
	if table.Length() == 0 {
		return nil, errors.New("constituents table not found")
	}

	symbolCol, sectorCol := -1, -1
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		h := strings.ToLower(strings.TrimSpace(th.Text()))
		switch {
		case symbolCol < 0 && (strings.Contains(h, "symbol") || h == "ticker"):
			symbolCol = i
		case sectorCol < 0 && strings.Contains(h, "sector"):
			sectorCol = i
		}
	})
	if symbolCol < 0 {
		return nil, errors.New("symbol column not found")
	}

	var out []contracts.Instrument
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() <= symbolCol {
			return
		}

		sym := normalizeSymbol(strings.ReplaceAll(cells.Eq(symbolCol).Text(), ".", "-"))
		if sym == "" {
			return
		}

		inst := contracts.Instrument{Symbol: sym}
		if sectorCol >= 0 && cells.Length() > sectorCol {
			inst.Sector = strings.TrimSpace(cells.Eq(sectorCol).Text())
		}
		out = append(out, inst)
	})

	if len(out) == 0 {
		return nil, errors.New("constituents table has no rows")
	}
	return sortUnique(out), nil
}

func (p *WikipediaProvider) loadCache(name string) ([]contracts.Instrument, bool) {
	if p.refresh {
		return nil, false
	}

	path := p.CachePath(name)
	instruments, err := LoadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.logger.WithError(err).Warn("Ignoring unreadable ticker cache")
		}
		return nil, false
	}
	if len(instruments) == 0 {
		return nil, false
	}

	p.logger.WithFields(map[string]interface{}{
		"index": name,
		"count": len(instruments),
		"path":  path,
	}).Debug("Loaded tickers from cache")
	return instruments, true
}

func (p *WikipediaProvider) saveCache(name string, instruments []contracts.Instrument) {
	path := p.CachePath(name)

	data, err := json.MarshalIndent(instruments, "", "  ")
	if err == nil {
		err = fileutil.WriteAtomic(path, data, 0o644)
	}
	if err != nil {
		p.logger.WithError(err).Warn("Failed to cache tickers")
		return
	}

	p.logger.WithFields(map[string]interface{}{
		"index": name,
		"count": len(instruments),
		"path":  path,
	}).Info("Cached tickers")
}

// sortUnique sorts by symbol and keeps the first sector seen per symbol
func sortUnique(in []contracts.Instrument) []contracts.Instrument {
	seen := make(map[string]struct{}, len(in))
	out := make([]contracts.Instrument, 0, len(in))
	for _, inst := range in {
		if _, dup := seen[inst.Symbol]; dup {
			continue
		}
		seen[inst.Symbol] = struct{}{}
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
