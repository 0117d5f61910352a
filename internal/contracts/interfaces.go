package contracts

import "context"

// MetricSource fetches fundamentals for one instrument.
// Errors wrap ErrDataUnavailable.
// ⭐ SSOT: 외부 지표 제공자 인터페이스
type MetricSource interface {
	Fetch(ctx context.Context, symbol string) (MetricSnapshot, error)
}

// UniverseProvider lists the instruments of a named universe in order
// ⭐ SSOT: 유니버스 제공 인터페이스
type UniverseProvider interface {
	List(ctx context.Context, name string) ([]Instrument, error)
}

// ResultsStore persists screening batches
// ⭐ SSOT: 결과 저장 인터페이스
type ResultsStore interface {
	// Save persists the batch and returns where it was stored
	Save(ctx context.Context, batch *ScreeningBatch) (string, error)
	// Latest returns the most recent batch for tag, or ErrNoBatch
	Latest(ctx context.Context, tag string) (*ScreeningBatch, error)
	// List returns batch references newest first; empty tag lists all
	List(ctx context.Context, tag string) ([]BatchRef, error)
}
