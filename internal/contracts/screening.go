package contracts

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects which tracks decide pass/fail
type Mode string

const (
	ModeAbsolute Mode = "absolute" // strict absolute limits only
	ModeSector   Mode = "sector"   // sector-relative only
	ModeDual     Mode = "dual"     // safety-net AND sector-relative
)

// ParseMode validates a mode string
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAbsolute, ModeSector, ModeDual:
		return m, nil
	case "":
		return ModeDual, nil
	}
	return "", fmt.Errorf("unknown mode %q (want absolute, sector or dual)", s)
}

// Metric names a tracked ranking metric
type Metric string

const (
	MetricPE  Metric = "pe"
	MetricPEG Metric = "peg"
	MetricROE Metric = "roe"
	MetricDE  Metric = "de"
)

// TrackedMetrics in evaluation order
var TrackedMetrics = []Metric{MetricPE, MetricPEG, MetricROE, MetricDE}

// Label returns the display label of the metric
func (m Metric) Label() string {
	switch m {
	case MetricPE:
		return "P/E"
	case MetricPEG:
		return "PEG"
	case MetricROE:
		return "ROE"
	case MetricDE:
		return "D/E"
	}
	return string(m)
}

// LowerIsBetter reports the ranking polarity of the metric
func (m Metric) LowerIsBetter() bool {
	return m != MetricROE
}

// ReasonKind separates "failed because bad" from "failed because unknown"
type ReasonKind string

const (
	ReasonFail        ReasonKind = "fail"        // metric present and outside its limit
	ReasonUnknown     ReasonKind = "unknown"     // metric absent, check not evaluable
	ReasonUnavailable ReasonKind = "unavailable" // provider fetch failed
	ReasonRelative    ReasonKind = "relative"    // sector-relative track rejected
)

// DataUnavailableMessage is the reason text for failed fetches
const DataUnavailableMessage = "data unavailable"

// Reason is one human-readable fail reason
type Reason struct {
	Kind    ReasonKind `json:"kind"`
	Metric  Metric     `json:"metric,omitempty"`
	Message string     `json:"message"`
}

func (r Reason) String() string {
	return r.Message
}

// Track names a pass/fail evaluation axis
type Track string

const (
	TrackAbsolute  Track = "absolute"
	TrackSafetyNet Track = "safety_net"
	TrackRelative  Track = "relative"
)

// SectorPercentiles is an instrument's standing among its sector peers.
// Percentiles holds only metrics that could be ranked; 0 = worst, 1 = best.
type SectorPercentiles struct {
	Sector      string             `json:"sector"`
	PeerCount   int                `json:"peer_count"`
	Percentiles map[Metric]float64 `json:"percentiles,omitempty"`
	Composite   *float64           `json:"composite,omitempty"`
	Exempt      bool               `json:"exempt"`
}

// AbsoluteOutcome records one limit-set evaluation
type AbsoluteOutcome struct {
	Track   Track    `json:"track"`
	Passed  bool     `json:"passed"`
	Reasons []Reason `json:"reasons,omitempty"`
}

// RelativeOutcome records the sector-relative evaluation
type RelativeOutcome struct {
	Passed      bool              `json:"passed"`
	Exempt      bool              `json:"exempt"`
	Percentiles SectorPercentiles `json:"percentiles"`
}

// ScreeningResult is the decision for one instrument in one run
// ⭐ SSOT: 종목별 스크리닝 결과
type ScreeningResult struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name,omitempty"`
	Sector string `json:"sector"`

	Passed       bool    `json:"passed"`
	PassedTracks []Track `json:"passed_tracks,omitempty"`

	Absolute *AbsoluteOutcome `json:"absolute,omitempty"`
	Relative *RelativeOutcome `json:"relative,omitempty"`

	Reasons []Reason `json:"reasons,omitempty"`

	GrahamNumber   *float64 `json:"graham_number,omitempty"`
	MarginOfSafety *float64 `json:"margin_of_safety_pct,omitempty"`

	Snapshot *MetricSnapshot `json:"snapshot,omitempty"`
}

// HasReason reports whether any reason has the given kind
func (r ScreeningResult) HasReason(kind ReasonKind) bool {
	for _, reason := range r.Reasons {
		if reason.Kind == kind {
			return true
		}
	}
	return false
}

// ScreeningBatch is the full output of one run
// ⭐ SSOT: 실행 단위 결과 (한 번 저장 후 불변)
type ScreeningBatch struct {
	RunID          string            `json:"run_id"`
	Timestamp      time.Time         `json:"timestamp"`
	Mode           Mode              `json:"mode"`
	Tag            string            `json:"tag"`
	Universe       string            `json:"universe,omitempty"`
	ThresholdsHash string            `json:"thresholds_hash"`
	TotalScreened  int               `json:"total_screened"`
	TotalPassed    int               `json:"total_passed"`
	Results        []ScreeningResult `json:"results"`
}

// Passed returns the passing results in batch order
func (b *ScreeningBatch) Passed() []ScreeningResult {
	out := make([]ScreeningResult, 0, b.TotalPassed)
	for _, r := range b.Results {
		if r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the result for symbol
func (b *ScreeningBatch) Find(symbol string) (ScreeningResult, bool) {
	symbol = strings.ToUpper(symbol)
	for _, r := range b.Results {
		if r.Symbol == symbol {
			return r, true
		}
	}
	return ScreeningResult{}, false
}

// Ref summarizes the batch for listings
func (b *ScreeningBatch) Ref(location string) BatchRef {
	return BatchRef{
		RunID:         b.RunID,
		Tag:           b.Tag,
		Mode:          b.Mode,
		Timestamp:     b.Timestamp,
		TotalScreened: b.TotalScreened,
		TotalPassed:   b.TotalPassed,
		Location:      location,
	}
}

// BatchRef points at a persisted batch
type BatchRef struct {
	RunID         string    `json:"run_id"`
	Tag           string    `json:"tag"`
	Mode          Mode      `json:"mode"`
	Timestamp     time.Time `json:"timestamp"`
	TotalScreened int       `json:"total_screened"`
	TotalPassed   int       `json:"total_passed"`
	Location      string    `json:"location"`
}
