package risk

import (
	"context"
	"errors"
	"math"
	"sync"
)

const (
	DefaultVolatility  = 15.0
	DefaultCorrelation = 0.5
)

// ErrDataUnavailable is returned by a source that has no value for an
// instrument.
var ErrDataUnavailable = errors.New("risk data unavailable")

type VolatilitySource interface {
	GetVolatility(ctx context.Context, instrument string) (float64, error)
}

type CorrelationSource interface {
	GetCorrelation(ctx context.Context, instrument string) (float64, error)
}

// Inputs is a point-in-time copy of the per-instrument risk inputs. Missing
// instruments fall back to DefaultVolatility and DefaultCorrelation.
type Inputs struct {
	Vol   map[string]float64
	Corr  map[string]float64
	Fresh bool // false when any lookup fell back
}

func (in Inputs) Volatility(instrument string) float64 {
	if v, ok := in.Vol[instrument]; ok {
		return v
	}
	return DefaultVolatility
}

func (in Inputs) Correlation(instrument string) float64 {
	if c, ok := in.Corr[instrument]; ok {
		return c
	}
	return DefaultCorrelation
}

// Static serves fixed values. It is used for config-supplied inputs and in
// tests.
type Static struct {
	mu   sync.RWMutex
	vol  map[string]float64
	corr map[string]float64
}

func NewStatic(vol, corr map[string]float64) *Static {
	s := &Static{vol: make(map[string]float64), corr: make(map[string]float64)}
	for k, v := range vol {
		s.vol[k] = v
	}
	for k, v := range corr {
		s.corr[k] = v
	}
	return s
}

func (s *Static) GetVolatility(_ context.Context, instrument string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vol[instrument]
	if !ok {
		return 0, ErrDataUnavailable
	}
	return v, nil
}

func (s *Static) GetCorrelation(_ context.Context, instrument string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.corr[instrument]
	if !ok {
		return 0, ErrDataUnavailable
	}
	return c, nil
}

func sanitizeVolatility(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func sanitizeCorrelation(c float64) (float64, bool) {
	if math.IsNaN(c) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, c)), true
}
