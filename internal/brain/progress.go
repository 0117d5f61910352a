package brain

// Source tells where an instrument's metrics came from in a run
type Source string

const (
	SourceCache   Source = "cache"   // live cache hit
	SourceFetched Source = "fetched" // provider call succeeded
	SourceFailed  Source = "failed"  // provider call failed or timed out
	SourceBackoff Source = "backoff" // live failure marker, provider not called
)

// Progress is published after each instrument is resolved
type Progress struct {
	RunID  string `json:"run_id"`
	Done   int    `json:"done"`
	Total  int    `json:"total"`
	Symbol string `json:"symbol"`
	Source Source `json:"source"`
}

// ProgressFunc receives progress updates; calls are serialized
type ProgressFunc func(Progress)

// ChainProgress calls every non-nil fn in order; nil when there is none
func ChainProgress(fns ...ProgressFunc) ProgressFunc {
	var chain []ProgressFunc
	for _, fn := range fns {
		if fn != nil {
			chain = append(chain, fn)
		}
	}

	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0]
	}
	return func(p Progress) {
		for _, fn := range chain {
			fn(p)
		}
	}
}
