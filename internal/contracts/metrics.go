package contracts

// DEScale tells how a provider expressed debt-to-equity
type DEScale string

const (
	DEScalePercent DEScale = "percent" // 170.5 means 1.705
	DEScaleRatio   DEScale = "ratio"
)

// MetricSnapshot holds the fundamentals of one instrument at fetch time.
// Every numeric field is optional: nil means unknown, never zero.
// DebtToEquity is always a ratio here.
// ⭐ SSOT: 스크리닝 입력 데이터
type MetricSnapshot struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`

	TrailingPE        *float64 `json:"trailing_pe,omitempty"`
	ForwardPE         *float64 `json:"forward_pe,omitempty"`
	PEG               *float64 `json:"peg,omitempty"`
	ROE               *float64 `json:"roe,omitempty"`            // 0.15 = 15%
	DebtToEquity      *float64 `json:"debt_to_equity,omitempty"` // ratio
	EPS               *float64 `json:"eps,omitempty"`
	BookValuePerShare *float64 `json:"book_value_per_share,omitempty"`
	Price             *float64 `json:"price,omitempty"`
	EarningsGrowth    *float64 `json:"earnings_growth,omitempty"` // 0.12 = 12%
	MarketCap         *float64 `json:"market_cap,omitempty"`
}

// Clone returns a deep copy so cached snapshots cannot be mutated through
// a returned value.
func (s MetricSnapshot) Clone() MetricSnapshot {
	c := s
	c.TrailingPE = clonePtr(s.TrailingPE)
	c.ForwardPE = clonePtr(s.ForwardPE)
	c.PEG = clonePtr(s.PEG)
	c.ROE = clonePtr(s.ROE)
	c.DebtToEquity = clonePtr(s.DebtToEquity)
	c.EPS = clonePtr(s.EPS)
	c.BookValuePerShare = clonePtr(s.BookValuePerShare)
	c.Price = clonePtr(s.Price)
	c.EarningsGrowth = clonePtr(s.EarningsGrowth)
	c.MarketCap = clonePtr(s.MarketCap)
	return c
}

// Value returns the tracked metric of the snapshot
func (s MetricSnapshot) Value(m Metric) *float64 {
	switch m {
	case MetricPE:
		return s.TrailingPE
	case MetricPEG:
		return s.PEG
	case MetricROE:
		return s.ROE
	case MetricDE:
		return s.DebtToEquity
	}
	return nil
}

// RawFundamentals is a provider-shaped payload before normalization
type RawFundamentals struct {
	Symbol   string
	Name     string
	Sector   string
	Industry string

	TrailingPE        *float64
	ForwardPE         *float64
	PEG               *float64
	ROE               *float64
	DebtToEquity      *float64
	DebtToEquityScale DEScale
	EPS               *float64
	BookValuePerShare *float64
	Price             *float64
	EarningsGrowth    *float64
	MarketCap         *float64
}

// Snapshot normalizes provider quirks into a MetricSnapshot:
// percent-scaled D/E becomes a ratio, and a missing PEG is derived from
// trailing P/E and positive earnings growth.
func (r RawFundamentals) Snapshot() MetricSnapshot {
	s := MetricSnapshot{
		Symbol:            r.Symbol,
		Name:              r.Name,
		Sector:            r.Sector,
		Industry:          r.Industry,
		TrailingPE:        clonePtr(r.TrailingPE),
		ForwardPE:         clonePtr(r.ForwardPE),
		PEG:               clonePtr(r.PEG),
		ROE:               clonePtr(r.ROE),
		EPS:               clonePtr(r.EPS),
		BookValuePerShare: clonePtr(r.BookValuePerShare),
		Price:             clonePtr(r.Price),
		EarningsGrowth:    clonePtr(r.EarningsGrowth),
		MarketCap:         clonePtr(r.MarketCap),
	}

	if r.DebtToEquity != nil {
		de := *r.DebtToEquity
		if r.DebtToEquityScale != DEScaleRatio {
			de = RatioFromPercent(de)
		}
		s.DebtToEquity = &de
	}

	if s.PEG == nil && s.TrailingPE != nil && s.EarningsGrowth != nil && *s.EarningsGrowth > 0 {
		peg := *s.TrailingPE / (*s.EarningsGrowth * 100)
		s.PEG = &peg
	}

	return s
}

// RatioFromPercent converts a percent-scaled value (170.5) to a ratio (1.705)
func RatioFromPercent(v float64) float64 {
	return v / 100
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
