package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/screenconfig"
)

var f = contracts.Float

func value(symbol string) contracts.MetricSnapshot {
	return contracts.MetricSnapshot{
		Symbol:       symbol,
		Sector:       "Financial Services",
		TrailingPE:   f(10),
		PEG:          f(0.8),
		ROE:          f(0.20),
		DebtToEquity: f(0.3),
	}
}

func reasonKinds(reasons []contracts.Reason) map[contracts.Metric]contracts.ReasonKind {
	out := make(map[contracts.Metric]contracts.ReasonKind)
	for _, r := range reasons {
		out[r.Metric] = r.Kind
	}
	return out
}

func TestEvaluateAbsolute_Pass(t *testing.T) {
	passed, reasons := EvaluateAbsolute(value("JPM"), screenconfig.Default().Absolute, CeilingBenchmark())
	assert.True(t, passed)
	assert.Empty(t, reasons)
}

func TestEvaluateAbsolute_EachLimit(t *testing.T) {
	limits := screenconfig.Default().Absolute

	tests := []struct {
		name   string
		mut    func(*contracts.MetricSnapshot)
		metric contracts.Metric
		msg    string
	}{
		{"pe at ceiling", func(s *contracts.MetricSnapshot) { s.TrailingPE = f(15) }, contracts.MetricPE, "P/E 15.0 >= 15"},
		{"negative pe", func(s *contracts.MetricSnapshot) { s.TrailingPE = f(-4) }, contracts.MetricPE, "P/E -4.0 is not positive"},
		{"peg at ceiling", func(s *contracts.MetricSnapshot) { s.PEG = f(1.0) }, contracts.MetricPEG, "PEG 1.00 >= 1"},
		{"roe below floor", func(s *contracts.MetricSnapshot) { s.ROE = f(0.1) }, contracts.MetricROE, "ROE 10.00% < 15%"},
		{"de above ceiling", func(s *contracts.MetricSnapshot) { s.DebtToEquity = f(0.51) }, contracts.MetricDE, "D/E 0.51 > 0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := value("X")
			tt.mut(&s)

			passed, reasons := EvaluateAbsolute(s, limits, CeilingBenchmark())
			assert.False(t, passed)
			require.Len(t, reasons, 1)
			assert.Equal(t, contracts.ReasonFail, reasons[0].Kind)
			assert.Equal(t, tt.metric, reasons[0].Metric)
			assert.Equal(t, tt.msg, reasons[0].Message)
		})
	}
}

func TestEvaluateAbsolute_Boundaries(t *testing.T) {
	limits := screenconfig.Default().Absolute
	s := value("X")
	s.ROE = f(0.15)        // at floor passes
	s.DebtToEquity = f(0.5) // at ceiling passes

	passed, reasons := EvaluateAbsolute(s, limits, CeilingBenchmark())
	assert.True(t, passed)
	assert.Empty(t, reasons)
}

func TestEvaluateAbsolute_MissingMetric(t *testing.T) {
	s := value("X")
	s.PEG = nil

	strict := screenconfig.Default().Absolute
	passed, reasons := EvaluateAbsolute(s, strict, CeilingBenchmark())
	assert.False(t, passed, "require_complete blocks on unknown")
	require.Len(t, reasons, 1)
	assert.Equal(t, contracts.ReasonUnknown, reasons[0].Kind)
	assert.Equal(t, "PEG unavailable", reasons[0].Message)

	lenient := screenconfig.Default().SafetyNet
	passed, reasons = EvaluateAbsolute(s, lenient, CeilingBenchmark())
	assert.True(t, passed, "unknown is recorded but not disqualifying")
	assert.Equal(t, contracts.ReasonUnknown, reasonKinds(reasons)[contracts.MetricPEG])
}

func TestEvaluateAbsolute_DistinguishesBadFromUnknown(t *testing.T) {
	s := value("X")
	s.ROE = nil
	s.DebtToEquity = f(3)

	_, reasons := EvaluateAbsolute(s, screenconfig.Default().SafetyNet, CeilingBenchmark())
	kinds := reasonKinds(reasons)
	assert.Equal(t, contracts.ReasonUnknown, kinds[contracts.MetricROE])
	assert.Equal(t, contracts.ReasonFail, kinds[contracts.MetricDE])
}

func TestEvaluateAbsolute_SectorAverageComparator(t *testing.T) {
	limits := screenconfig.Default().Absolute
	s := value("X")
	s.TrailingPE = f(18) // above ceiling 15, below sector average 20

	bench := PEBenchmark{Comparator: screenconfig.PESectorAverage, SectorAverage: f(20)}
	passed, _ := EvaluateAbsolute(s, limits, bench)
	assert.True(t, passed)

	bench.SectorAverage = f(17)
	passed, reasons := EvaluateAbsolute(s, limits, bench)
	assert.False(t, passed)
	assert.Equal(t, "P/E 18.0 >= sector average 17.0", reasons[0].Message)

	// 섹터 평균을 모르면 ceiling으로 대체
	bench.SectorAverage = nil
	passed, _ = EvaluateAbsolute(s, limits, bench)
	assert.False(t, passed)
}

func TestEvaluateAbsolute_Deterministic(t *testing.T) {
	s := value("X")
	s.DebtToEquity = f(0.9)
	s.ROE = nil
	limits := screenconfig.Default().Absolute

	p1, r1 := EvaluateAbsolute(s, limits, CeilingBenchmark())
	for i := 0; i < 20; i++ {
		p2, r2 := EvaluateAbsolute(s, limits, CeilingBenchmark())
		assert.Equal(t, p1, p2)
		assert.Equal(t, r1, r2)
	}
}

func TestEvaluateAbsolute_NormalizedDebtToEquity(t *testing.T) {
	limits := screenconfig.Default().SafetyNet

	fromPercent := contracts.RawFundamentals{
		Symbol: "X", TrailingPE: f(10), PEG: f(1), ROE: f(0.2),
		DebtToEquity: f(170.5), DebtToEquityScale: contracts.DEScalePercent,
	}.Snapshot()
	fromRatio := contracts.RawFundamentals{
		Symbol: "X", TrailingPE: f(10), PEG: f(1), ROE: f(0.2),
		DebtToEquity: f(1.705), DebtToEquityScale: contracts.DEScaleRatio,
	}.Snapshot()

	p1, r1 := EvaluateAbsolute(fromPercent, limits, CeilingBenchmark())
	p2, r2 := EvaluateAbsolute(fromRatio, limits, CeilingBenchmark())
	assert.True(t, p1)
	assert.Equal(t, p1, p2)
	assert.Equal(t, r1, r2)
}
