package selection

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/screenconfig"
	"github.com/ddwolfer/Financial-Assistant/pkg/logger"
)

// compositeEpsilon absorbs float noise in the cutoff comparison
const compositeEpsilon = 1e-9

// Ranker computes sector-relative percentiles
// ⭐ SSOT: 섹터 내 백분위 랭킹은 여기서만
type Ranker struct {
	thresholds screenconfig.Thresholds
	logger     *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(thresholds screenconfig.Thresholds, log *logger.Logger) *Ranker {
	if log == nil {
		log = logger.Nop()
	}
	return &Ranker{
		thresholds: thresholds,
		logger:     log.WithComponent("ranker"),
	}
}

// Rank returns percentiles keyed by symbol for every snapshot in bySector.
// Sectors smaller than min_sector_peers are marked exempt and not ranked.
func (r *Ranker) Rank(bySector map[string][]contracts.MetricSnapshot) map[string]contracts.SectorPercentiles {
	out := make(map[string]contracts.SectorPercentiles)
	exempt := 0

	for sector, members := range bySector {
		n := len(members)
		if n < r.thresholds.MinSectorPeers {
			exempt++
			for _, s := range members {
				out[s.Symbol] = contracts.SectorPercentiles{
					Sector:    sector,
					PeerCount: n,
					Exempt:    true,
				}
			}
			continue
		}

		perMetric := make(map[contracts.Metric]map[string]float64, len(contracts.TrackedMetrics))
		for _, m := range contracts.TrackedMetrics {
			perMetric[m] = PercentileRanks(members, m)
		}

		for _, s := range members {
			p := contracts.SectorPercentiles{
				Sector:      sector,
				PeerCount:   n,
				Percentiles: make(map[contracts.Metric]float64),
			}
			values := make([]float64, 0, len(contracts.TrackedMetrics))
			for _, m := range contracts.TrackedMetrics {
				if pct, ok := perMetric[m][s.Symbol]; ok {
					p.Percentiles[m] = pct
					values = append(values, pct)
				}
			}
			p.Composite = Composite(values, r.thresholds.Composite)
			out[s.Symbol] = p
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"sectors":        len(bySector),
		"exempt_sectors": exempt,
		"instruments":    len(out),
	}).Debug("Sector ranking completed")

	return out
}

// PercentileRanks ranks one metric inside a peer group.
// Lower-is-better metrics are negated first so 1 is always most favorable.
// Ties share the average of their 1-based ranks; percentile = (rank−1)/(n−1).
// Members without a rankable value are left out; a population of one
// yields no percentile.
func PercentileRanks(members []contracts.MetricSnapshot, m contracts.Metric) map[string]float64 {
	type scored struct {
		symbol string
		score  float64
	}

	pop := make([]scored, 0, len(members))
	for _, s := range members {
		v := s.Value(m)
		if v == nil || !rankable(m, *v) {
			continue
		}
		score := *v
		if m.LowerIsBetter() {
			score = -score
		}
		pop = append(pop, scored{symbol: s.Symbol, score: score})
	}

	n := len(pop)
	out := make(map[string]float64, n)
	if n < 2 {
		return out
	}

	sort.SliceStable(pop, func(i, j int) bool { return pop[i].score < pop[j].score })

	for i := 0; i < n; {
		j := i
		for j+1 < n && pop[j+1].score == pop[i].score {
			j++
		}
		// 동점 구간 [i, j]의 평균 순위 (1-based)
		avgRank := float64(i+j)/2 + 1
		pct := (avgRank - 1) / float64(n-1)
		for k := i; k <= j; k++ {
			out[pop[k].symbol] = pct
		}
		i = j + 1
	}

	return out
}

// rankable excludes values that are not meaningful for comparison:
// non-positive P/E and PEG, negative D/E (negative equity).
func rankable(m contracts.Metric, v float64) bool {
	switch m {
	case contracts.MetricPE, contracts.MetricPEG:
		return v > 0
	case contracts.MetricDE:
		return v >= 0
	}
	return true
}

// Composite folds percentiles into one score; nil when none are present.
// worst (the default) makes every present percentile clear the cutoff.
func Composite(values []float64, method screenconfig.CompositeMethod) *float64 {
	if len(values) == 0 {
		return nil
	}

	var c float64
	switch method {
	case screenconfig.CompositeMean:
		c = stat.Mean(values, nil)
	case screenconfig.CompositeMedian:
		c = median(values)
	default:
		c = floats.Min(values)
	}
	return &c
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return stat.Mean(sorted[mid-1:mid+1], nil)
}

// EvaluateRelative decides the sector-relative track.
// Exempt sectors never pass here; at least one percentile is required.
func EvaluateRelative(p contracts.SectorPercentiles, t screenconfig.Thresholds) (bool, []contracts.Reason) {
	reject := func(format string, args ...interface{}) (bool, []contracts.Reason) {
		return false, []contracts.Reason{{
			Kind:    contracts.ReasonRelative,
			Message: fmt.Sprintf(format, args...),
		}}
	}

	if p.Exempt {
		return reject("sector %s has %d peers (< %d), relative ranking skipped", p.Sector, p.PeerCount, t.MinSectorPeers)
	}
	if p.Composite == nil {
		return reject("no rankable metrics in sector %s", p.Sector)
	}

	cutoff := t.RelativeCutoff()
	if *p.Composite+compositeEpsilon < cutoff {
		return reject("sector percentile %.2f < %.2f in %s", *p.Composite, cutoff, p.Sector)
	}
	return true, nil
}

// SectorAveragePE returns the mean positive P/E of the peers, or nil
func SectorAveragePE(members []contracts.MetricSnapshot) *float64 {
	values := make([]float64, 0, len(members))
	for _, s := range members {
		if s.TrailingPE != nil && *s.TrailingPE > 0 {
			values = append(values, *s.TrailingPE)
		}
	}
	if len(values) == 0 {
		return nil
	}
	avg := stat.Mean(values, nil)
	return &avg
}
