package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/screenconfig"
)

func snap(symbol string, pe, peg, roe, de *float64) contracts.MetricSnapshot {
	return contracts.MetricSnapshot{
		Symbol:       symbol,
		TrailingPE:   pe,
		PEG:          peg,
		ROE:          roe,
		DebtToEquity: de,
	}
}

func TestPercentileRanks_Bounds(t *testing.T) {
	members := []contracts.MetricSnapshot{
		snap("A", f(8), nil, nil, nil),
		snap("B", f(12), nil, nil, nil),
		snap("C", f(30), nil, nil, nil),
		snap("D", f(20), nil, nil, nil),
	}

	ranks := PercentileRanks(members, contracts.MetricPE)
	require.Len(t, ranks, 4)

	// lower P/E is better
	assert.Equal(t, 1.0, ranks["A"])
	assert.InDelta(t, 2.0/3, ranks["B"], 1e-12)
	assert.InDelta(t, 1.0/3, ranks["D"], 1e-12)
	assert.Equal(t, 0.0, ranks["C"])
	for _, p := range ranks {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestPercentileRanks_TiesUseAverageRank(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"no ties", []float64{0.1, 0.2, 0.3, 0.4, 0.5}},
		{"pair", []float64{0.1, 0.2, 0.2, 0.4}},
		{"triple", []float64{0.3, 0.3, 0.3, 0.1, 0.9}},
		{"all equal", []float64{0.2, 0.2, 0.2}},
		{"two groups", []float64{0.1, 0.1, 0.5, 0.5, 0.5, 0.7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := make([]contracts.MetricSnapshot, len(tt.values))
			for i, v := range tt.values {
				members[i] = snap(string(rune('A'+i)), nil, nil, f(v), nil)
			}

			ranks := PercentileRanks(members, contracts.MetricROE)
			require.Len(t, ranks, len(tt.values))

			// Σ (rank−1)/(n−1) = n/2 for average ranks
			sum := 0.0
			for _, p := range ranks {
				sum += p
				assert.GreaterOrEqual(t, p, 0.0)
				assert.LessOrEqual(t, p, 1.0)
			}
			assert.InDelta(t, float64(len(tt.values))/2, sum, 1e-9)

			// equal values share one percentile
			for i := range tt.values {
				for j := range tt.values {
					if tt.values[i] == tt.values[j] {
						assert.Equal(t, ranks[members[i].Symbol], ranks[members[j].Symbol])
					}
				}
			}
		})
	}
}

func TestPercentileRanks_AllEqualIsMidpoint(t *testing.T) {
	members := []contracts.MetricSnapshot{
		snap("A", nil, nil, nil, f(1)),
		snap("B", nil, nil, nil, f(1)),
		snap("C", nil, nil, nil, f(1)),
	}
	for _, p := range PercentileRanks(members, contracts.MetricDE) {
		assert.Equal(t, 0.5, p)
	}
}

func TestPercentileRanks_ExcludesUnrankable(t *testing.T) {
	members := []contracts.MetricSnapshot{
		snap("A", f(-5), f(-1), nil, f(-0.4)),
		snap("B", f(10), f(0.9), nil, f(0.5)),
		snap("C", f(20), nil, nil, f(1.5)),
		snap("D", nil, f(1.5), nil, nil),
	}

	pe := PercentileRanks(members, contracts.MetricPE)
	assert.NotContains(t, pe, "A")
	assert.Equal(t, map[string]float64{"B": 1, "C": 0}, pe)

	peg := PercentileRanks(members, contracts.MetricPEG)
	assert.Equal(t, map[string]float64{"B": 1, "D": 0}, peg)

	de := PercentileRanks(members, contracts.MetricDE)
	assert.NotContains(t, de, "A")
	assert.Len(t, de, 2)
}

func TestPercentileRanks_SingleValueYieldsNothing(t *testing.T) {
	members := []contracts.MetricSnapshot{
		snap("A", f(10), nil, nil, nil),
		snap("B", nil, nil, nil, nil),
	}
	assert.Empty(t, PercentileRanks(members, contracts.MetricPE))
}

func TestComposite(t *testing.T) {
	values := []float64{0.75, 0.75, 0.75, 0.5}

	assert.InDelta(t, 0.75, *Composite(values, screenconfig.CompositeMedian), 1e-12)
	assert.InDelta(t, 0.6875, *Composite(values, screenconfig.CompositeMean), 1e-12)
	assert.InDelta(t, 0.5, *Composite(values, screenconfig.CompositeWorst), 1e-12)
	assert.InDelta(t, 0.4, *Composite([]float64{0.9, 0.4, 0.1}, screenconfig.CompositeMedian), 1e-12)
	assert.Nil(t, Composite(nil, screenconfig.CompositeMedian))
	assert.InDelta(t, 0.5, *Composite(values, ""), 1e-12, "unset method folds to worst")
}

func TestRanker_ExemptSmallSectors(t *testing.T) {
	th := screenconfig.Default()
	r := NewRanker(th, nil)

	out := r.Rank(map[string][]contracts.MetricSnapshot{
		"Utilities": {
			snap("U1", f(5), f(0.2), f(0.5), f(0.1)),
			snap("U2", f(40), f(2.5), f(0.06), f(1.9)),
		},
	})

	require.Len(t, out, 2)
	for _, p := range out {
		assert.True(t, p.Exempt)
		assert.Equal(t, 2, p.PeerCount)
		assert.Nil(t, p.Composite)

		passed, reasons := EvaluateRelative(p, th)
		assert.False(t, passed, "exempt sector never passes via relative alone")
		require.Len(t, reasons, 1)
		assert.Equal(t, contracts.ReasonRelative, reasons[0].Kind)
	}
}

func TestRanker_HardFloorScenario(t *testing.T) {
	th := screenconfig.Default()
	r := NewRanker(th, nil)

	a := snap("A", f(8), f(0.5), f(0.30), f(0.2))
	b := snap("B", f(8), f(0.5), f(0.30), f(5.0))
	c := snap("C", f(20), f(1.5), f(0.10), f(6.0))
	d := snap("D", f(25), f(2.0), f(0.08), f(7.0))
	e := snap("E", f(30), f(2.5), f(0.06), f(8.0))

	out := r.Rank(map[string][]contracts.MetricSnapshot{"Technology": {a, b, c, d, e}})

	pb := out["B"]
	assert.False(t, pb.Exempt)
	assert.Equal(t, 5, pb.PeerCount)
	assert.Equal(t, 0.875, pb.Percentiles[contracts.MetricPE])
	assert.Equal(t, 0.75, pb.Percentiles[contracts.MetricDE])
	require.NotNil(t, pb.Composite)
	assert.InDelta(t, 0.75, *pb.Composite, 1e-12)

	passed, _ := EvaluateRelative(pb, th)
	assert.True(t, passed, "B passes relative ranking")

	passed, _ = EvaluateRelative(out["A"], th)
	assert.True(t, passed)

	passed, reasons := EvaluateRelative(out["D"], th)
	assert.False(t, passed)
	assert.Contains(t, reasons[0].Message, "sector percentile 0.25 < 0.70")
}

func TestRanker_DefaultRequiresEveryPercentile(t *testing.T) {
	// X leads the sector on P/E, PEG and ROE but carries the most debt
	members := []contracts.MetricSnapshot{
		snap("X", f(5), f(0.3), f(0.40), f(3.0)),
		snap("P1", f(10), f(0.8), f(0.10), f(0.2)),
		snap("P2", f(12), f(1.0), f(0.12), f(0.3)),
		snap("P3", f(14), f(1.2), f(0.14), f(0.4)),
		snap("P4", f(16), f(1.4), f(0.16), f(0.5)),
	}

	th := screenconfig.Default()
	px := NewRanker(th, nil).Rank(map[string][]contracts.MetricSnapshot{"Tech": members})["X"]

	assert.Equal(t, map[contracts.Metric]float64{
		contracts.MetricPE:  1,
		contracts.MetricPEG: 1,
		contracts.MetricROE: 1,
		contracts.MetricDE:  0,
	}, px.Percentiles)
	require.NotNil(t, px.Composite)
	assert.Equal(t, 0.0, *px.Composite)

	passed, reasons := EvaluateRelative(px, th)
	assert.False(t, passed, "one bottom-ranked metric rejects by default")
	require.Len(t, reasons, 1)
	assert.Equal(t, "sector percentile 0.00 < 0.70 in Tech", reasons[0].Message)

	// median is an explicit opt-in that tolerates one weak metric
	th.Composite = screenconfig.CompositeMedian
	px = NewRanker(th, nil).Rank(map[string][]contracts.MetricSnapshot{"Tech": members})["X"]
	passed, _ = EvaluateRelative(px, th)
	assert.True(t, passed)
}

func TestEvaluateRelative_NoRankableMetrics(t *testing.T) {
	p := contracts.SectorPercentiles{Sector: "Energy", PeerCount: 4, Percentiles: map[contracts.Metric]float64{}}
	passed, reasons := EvaluateRelative(p, screenconfig.Default())
	assert.False(t, passed)
	assert.Equal(t, "no rankable metrics in sector Energy", reasons[0].Message)
}

func TestEvaluateRelative_CutoffBoundary(t *testing.T) {
	th := screenconfig.Default()
	p := contracts.SectorPercentiles{Sector: "Tech", PeerCount: 5, Composite: f(0.7)}

	passed, _ := EvaluateRelative(p, th)
	assert.True(t, passed, "composite equal to 1 − threshold passes")

	p.Composite = f(0.69)
	passed, _ = EvaluateRelative(p, th)
	assert.False(t, passed)
}

func TestSectorAveragePE(t *testing.T) {
	members := []contracts.MetricSnapshot{
		snap("A", f(10), nil, nil, nil),
		snap("B", f(20), nil, nil, nil),
		snap("C", f(-8), nil, nil, nil),
		snap("D", nil, nil, nil, nil),
	}
	avg := SectorAveragePE(members)
	require.NotNil(t, avg)
	assert.Equal(t, 15.0, *avg)

	assert.Nil(t, SectorAveragePE([]contracts.MetricSnapshot{snap("X", nil, nil, nil, nil)}))
}
