package brain

import (
	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/screenconfig"
	"github.com/ddwolfer/Financial-Assistant/internal/selection"
	"github.com/ddwolfer/Financial-Assistant/pkg/logger"
)

// evaluate merges both tracks into one result per instrument
func evaluate(
	items []fetched,
	th screenconfig.Thresholds,
	mode contracts.Mode,
	log *logger.Logger,
) []contracts.ScreeningResult {
	// 섹터별 그룹핑 (실패 종목은 랭킹 입력에서 제외)
	bySector := make(map[string][]contracts.MetricSnapshot)
	for i := range items {
		if items[i].unavailable {
			continue
		}
		sector := sectorOf(items[i])
		bySector[sector] = append(bySector[sector], *items[i].snapshot)
	}

	var percentiles map[string]contracts.SectorPercentiles
	if mode != contracts.ModeAbsolute {
		percentiles = selection.NewRanker(th, log).Rank(bySector)
	}

	benchmarks := make(map[string]selection.PEBenchmark, len(bySector))
	for sector, members := range bySector {
		b := selection.PEBenchmark{Comparator: th.PEComparator}
		if th.PEComparator == screenconfig.PESectorAverage {
			b.SectorAverage = selection.SectorAveragePE(members)
		}
		benchmarks[sector] = b
	}

	results := make([]contracts.ScreeningResult, 0, len(items))
	for i := range items {
		results = append(results, evaluateOne(items[i], th, mode, percentiles, benchmarks))
	}

	sortResults(results)
	return results
}

func evaluateOne(
	item fetched,
	th screenconfig.Thresholds,
	mode contracts.Mode,
	percentiles map[string]contracts.SectorPercentiles,
	benchmarks map[string]selection.PEBenchmark,
) contracts.ScreeningResult {
	sector := sectorOf(item)
	result := contracts.ScreeningResult{
		Symbol: item.inst.Symbol,
		Sector: sector,
	}

	if item.unavailable {
		result.Reasons = []contracts.Reason{{
			Kind:    contracts.ReasonUnavailable,
			Message: contracts.DataUnavailableMessage,
		}}
		return result
	}

	s := *item.snapshot
	result.Name = s.Name
	result.Snapshot = &s
	result.GrahamNumber = selection.GrahamNumber(s.EPS, s.BookValuePerShare, th.GrahamMultiplier)
	result.MarginOfSafety = selection.MarginOfSafety(result.GrahamNumber, s.Price)

	bench := benchmarks[sector]

	if mode == contracts.ModeAbsolute {
		passed, reasons := selection.EvaluateAbsolute(s, th.Absolute, bench)
		result.Absolute = &contracts.AbsoluteOutcome{Track: contracts.TrackAbsolute, Passed: passed, Reasons: reasons}
		result.Reasons = reasons
		result.Passed = passed
		if passed {
			result.PassedTracks = []contracts.Track{contracts.TrackAbsolute}
		}
		return result
	}

	p := percentiles[s.Symbol]
	relPassed, relReasons := selection.EvaluateRelative(p, th)
	result.Relative = &contracts.RelativeOutcome{Passed: relPassed, Exempt: p.Exempt, Percentiles: p}

	// sector 모드는 비면제 섹터에서 안전망을 평가하지 않음
	needSafety := mode == contracts.ModeDual || p.Exempt
	var safetyPassed bool
	var safetyReasons []contracts.Reason
	if needSafety {
		safetyPassed, safetyReasons = selection.EvaluateAbsolute(s, th.SafetyNet, bench)
		result.Absolute = &contracts.AbsoluteOutcome{Track: contracts.TrackSafetyNet, Passed: safetyPassed, Reasons: safetyReasons}
	}

	if relPassed {
		result.PassedTracks = append(result.PassedTracks, contracts.TrackRelative)
	}
	if needSafety && safetyPassed {
		result.PassedTracks = append(result.PassedTracks, contracts.TrackSafetyNet)
	}

	switch {
	case p.Exempt:
		// 소형 섹터: 안전망만으로 판정
		result.Passed = safetyPassed
		result.Reasons = safetyReasons
	case mode == contracts.ModeSector:
		result.Passed = relPassed
		result.Reasons = relReasons
	default:
		// dual: 안전망은 상대 순위로 뒤집을 수 없는 하한선
		result.Passed = relPassed && safetyPassed
		result.Reasons = append(append([]contracts.Reason{}, relReasons...), safetyReasons...)
	}

	if len(result.Reasons) == 0 {
		result.Reasons = nil
	}
	return result
}

// sectorOf: universe sector → snapshot sector → Unknown
func sectorOf(item fetched) string {
	if item.inst.Sector != "" {
		return item.inst.Sector
	}
	if item.snapshot != nil && item.snapshot.Sector != "" {
		return item.snapshot.Sector
	}
	return contracts.UnknownSector
}
