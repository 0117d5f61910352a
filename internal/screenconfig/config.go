package screenconfig

// CompositeMethod folds per-metric percentiles into one score
type CompositeMethod string

const (
	CompositeMedian CompositeMethod = "median"
	CompositeMean   CompositeMethod = "mean"
	CompositeWorst  CompositeMethod = "worst"
)

// PEComparator selects the benchmark for the P/E check
type PEComparator string

const (
	PECeiling       PEComparator = "ceiling"        // P/E < limits.pe_max
	PESectorAverage PEComparator = "sector_average" // P/E < sector mean P/E
)

// Thresholds is the immutable screening configuration for one run.
// Every cutoff used by selection is read from here.
// ⭐ SSOT: 스크리닝 기준값
type Thresholds struct {
	Absolute  Limits `yaml:"absolute" json:"absolute"`
	SafetyNet Limits `yaml:"safety_net" json:"safety_net"`

	PEComparator        PEComparator    `yaml:"pe_comparator" json:"pe_comparator"`
	PercentileThreshold float64         `yaml:"percentile_threshold" json:"percentile_threshold"` // top fraction kept
	MinSectorPeers      int             `yaml:"min_sector_peers" json:"min_sector_peers"`
	Composite           CompositeMethod `yaml:"composite" json:"composite"`
	GrahamMultiplier    float64         `yaml:"graham_multiplier" json:"graham_multiplier"`
}

// Limits is one set of absolute ceilings and floors
type Limits struct {
	PEMax  float64 `yaml:"pe_max" json:"pe_max"`
	PEGMax float64 `yaml:"peg_max" json:"peg_max"`
	ROEMin float64 `yaml:"roe_min" json:"roe_min"` // ratio, 0.15 = 15%
	DEMax  float64 `yaml:"de_max" json:"de_max"`   // ratio

	// RequireComplete makes a missing metric disqualifying
	RequireComplete bool `yaml:"require_complete" json:"require_complete"`
}

// Default returns the standard thresholds
func Default() Thresholds {
	return Thresholds{
		Absolute: Limits{
			PEMax:           15,
			PEGMax:          1.0,
			ROEMin:          0.15,
			DEMax:           0.5,
			RequireComplete: true,
		},
		SafetyNet: Limits{
			PEMax:           50,
			PEGMax:          3.0,
			ROEMin:          0.05,
			DEMax:           2.0,
			RequireComplete: false,
		},
		PEComparator:        PECeiling,
		PercentileThreshold: 0.30,
		MinSectorPeers:      3,
		Composite:           CompositeWorst,
		GrahamMultiplier:    22.5,
	}
}

// WithPercentileThreshold returns a copy with a different percentile cutoff
func (t Thresholds) WithPercentileThreshold(p float64) Thresholds {
	t.PercentileThreshold = p
	return t
}

// RelativeCutoff is the minimum composite percentile that passes
func (t Thresholds) RelativeCutoff() float64 {
	return 1 - t.PercentileThreshold
}
