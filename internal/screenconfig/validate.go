package screenconfig

import (
	"fmt"
	"math"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
)

// ValidationError 검증 실패 (실행 전 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match contracts.ErrInvalidThreshold
func (e ValidationError) Unwrap() error {
	return contracts.ErrInvalidThreshold
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (fetch 전에 중단)
func Validate(t Thresholds) error {
	if err := validateLimits(t.Absolute, "absolute"); err != nil {
		return err
	}
	if err := validateLimits(t.SafetyNet, "safety_net"); err != nil {
		return err
	}

	switch t.PEComparator {
	case PECeiling, PESectorAverage:
	default:
		return ValidationError{"pe_comparator", fmt.Sprintf("must be %q or %q", PECeiling, PESectorAverage)}
	}

	if !finite(t.PercentileThreshold) || t.PercentileThreshold <= 0 || t.PercentileThreshold > 1 {
		return ValidationError{"percentile_threshold", "must be in (0, 1]"}
	}

	// 1개 종목 섹터가 백분위로 통과하는 것 방지
	if t.MinSectorPeers < 2 {
		return ValidationError{"min_sector_peers", "must be >= 2"}
	}

	switch t.Composite {
	case CompositeMedian, CompositeMean, CompositeWorst:
	default:
		return ValidationError{"composite", "must be one of median, mean, worst"}
	}

	if !finite(t.GrahamMultiplier) || t.GrahamMultiplier <= 0 {
		return ValidationError{"graham_multiplier", "must be > 0"}
	}

	return nil
}

func validateLimits(l Limits, prefix string) error {
	if !finite(l.PEMax) || l.PEMax <= 0 {
		return ValidationError{prefix + ".pe_max", "must be > 0"}
	}
	if !finite(l.PEGMax) || l.PEGMax <= 0 {
		return ValidationError{prefix + ".peg_max", "must be > 0"}
	}
	if !finite(l.ROEMin) || l.ROEMin < -1 || l.ROEMin > 1 {
		return ValidationError{prefix + ".roe_min", "must be a ratio in [-1, 1]"}
	}
	if !finite(l.DEMax) || l.DEMax < 0 {
		return ValidationError{prefix + ".de_max", "must be >= 0 (ratio, not percent)"}
	}
	return nil
}

// Warn returns recommendations that do not block a run
func Warn(t Thresholds) []Warning {
	var warnings []Warning

	if t.SafetyNet.PEMax < t.Absolute.PEMax ||
		t.SafetyNet.PEGMax < t.Absolute.PEGMax ||
		t.SafetyNet.ROEMin > t.Absolute.ROEMin ||
		t.SafetyNet.DEMax < t.Absolute.DEMax {
		warnings = append(warnings, Warning{
			Code:    "SAFETY_NET_STRICTER",
			Message: "safety_net is stricter than absolute on at least one limit",
		})
	}

	// D/E ceiling 값이 퍼센트로 입력된 경우
	if t.Absolute.DEMax > 10 || t.SafetyNet.DEMax > 10 {
		warnings = append(warnings, Warning{
			Code:    "DE_LOOKS_PERCENT",
			Message: "de_max above 10 looks percent-scaled; limits are ratios",
		})
	}

	if t.PercentileThreshold > 0.5 {
		warnings = append(warnings, Warning{
			Code:    "WIDE_PERCENTILE",
			Message: fmt.Sprintf("percentile_threshold %.2f keeps more than half of each sector", t.PercentileThreshold),
		})
	}

	return warnings
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
