package selection

import (
	"fmt"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/screenconfig"
)

// PEBenchmark selects what the P/E check compares against
type PEBenchmark struct {
	Comparator    screenconfig.PEComparator
	SectorAverage *float64 // used when Comparator is sector_average
}

// CeilingBenchmark compares P/E against the limit-set ceiling
func CeilingBenchmark() PEBenchmark {
	return PEBenchmark{Comparator: screenconfig.PECeiling}
}

// EvaluateAbsolute checks one snapshot against a limit set.
// All checks must hold to pass. A missing metric is recorded as an
// "unknown" reason and only blocks when limits.RequireComplete is set.
// ⭐ SSOT: 절대 기준 스크리닝은 여기서만
func EvaluateAbsolute(s contracts.MetricSnapshot, limits screenconfig.Limits, pe PEBenchmark) (bool, []contracts.Reason) {
	var reasons []contracts.Reason
	failed := false
	unknown := false

	fail := func(m contracts.Metric, format string, args ...interface{}) {
		failed = true
		reasons = append(reasons, contracts.Reason{
			Kind:    contracts.ReasonFail,
			Metric:  m,
			Message: fmt.Sprintf(format, args...),
		})
	}
	missing := func(m contracts.Metric) {
		unknown = true
		reasons = append(reasons, contracts.Reason{
			Kind:    contracts.ReasonUnknown,
			Metric:  m,
			Message: m.Label() + " unavailable",
		})
	}

	// Filter 1: P/E
	switch v := s.TrailingPE; {
	case v == nil:
		missing(contracts.MetricPE)
	case *v <= 0:
		fail(contracts.MetricPE, "P/E %.1f is not positive", *v)
	case pe.Comparator == screenconfig.PESectorAverage && pe.SectorAverage != nil:
		if *v >= *pe.SectorAverage {
			fail(contracts.MetricPE, "P/E %.1f >= sector average %.1f", *v, *pe.SectorAverage)
		}
	default:
		if *v >= limits.PEMax {
			fail(contracts.MetricPE, "P/E %.1f >= %g", *v, limits.PEMax)
		}
	}

	// Filter 2: PEG
	switch v := s.PEG; {
	case v == nil:
		missing(contracts.MetricPEG)
	case *v <= 0:
		fail(contracts.MetricPEG, "PEG %.2f is not positive", *v)
	case *v >= limits.PEGMax:
		fail(contracts.MetricPEG, "PEG %.2f >= %g", *v, limits.PEGMax)
	}

	// Filter 3: ROE
	switch v := s.ROE; {
	case v == nil:
		missing(contracts.MetricROE)
	case *v < limits.ROEMin:
		fail(contracts.MetricROE, "ROE %.2f%% < %.0f%%", *v*100, limits.ROEMin*100)
	}

	// Filter 4: Debt/Equity (이미 어댑터 경계에서 비율로 정규화됨)
	switch v := s.DebtToEquity; {
	case v == nil:
		missing(contracts.MetricDE)
	case *v > limits.DEMax:
		fail(contracts.MetricDE, "D/E %.2f > %g", *v, limits.DEMax)
	}

	passed := !failed && !(unknown && limits.RequireComplete)
	return passed, reasons
}
