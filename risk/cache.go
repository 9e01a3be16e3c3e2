package risk

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// InputCache keeps the last known volatility and correlation per
// instrument so scoring never waits on a collaborator. Refresh performs the
// lookups with a timeout; a failed lookup keeps the previous value.
type InputCache struct {
	vs      VolatilitySource
	cs      CorrelationSource
	timeout time.Duration
	logger  *slog.Logger

	// OnFailure is called once per failed lookup with "volatility" or
	// "correlation".
	OnFailure func(kind string)

	mu      sync.RWMutex
	vol     map[string]float64
	corr    map[string]float64
	stale   map[string]bool
	version uint64

	kick chan struct{}
}

func NewInputCache(vs VolatilitySource, cs CorrelationSource, timeout time.Duration, logger *slog.Logger) *InputCache {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &InputCache{
		vs:      vs,
		cs:      cs,
		timeout: timeout,
		logger:  logger,
		vol:     make(map[string]float64),
		corr:    make(map[string]float64),
		stale:   make(map[string]bool),
		kick:    make(chan struct{}, 1),
	}
}

// Inputs returns a copy of the cached values.
func (c *InputCache) Inputs() Inputs {
	c.mu.RLock()
	defer c.mu.RUnlock()
	in := Inputs{
		Vol:   make(map[string]float64, len(c.vol)),
		Corr:  make(map[string]float64, len(c.corr)),
		Fresh: len(c.stale) == 0,
	}
	for k, v := range c.vol {
		in.Vol[k] = v
	}
	for k, v := range c.corr {
		in.Corr[k] = v
	}
	return in
}

// Version increases whenever a cached value changes.
func (c *InputCache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Refresh looks up every instrument. It does not hold the cache lock while
// a lookup is in flight.
func (c *InputCache) Refresh(ctx context.Context, instruments []string) {
	for _, instr := range instruments {
		c.refreshOne(ctx, instr)
	}
}

func (c *InputCache) refreshOne(ctx context.Context, instr string) {
	var (
		vol, corr     float64
		volOK, corrOK bool
	)

	if c.vs != nil {
		lctx, cancel := context.WithTimeout(ctx, c.timeout)
		v, err := c.vs.GetVolatility(lctx, instr)
		cancel()
		if err == nil {
			vol, volOK = sanitizeVolatility(v)
		}
		if !volOK {
			c.failed("volatility", instr, err)
		}
	}

	if c.cs != nil {
		lctx, cancel := context.WithTimeout(ctx, c.timeout)
		v, err := c.cs.GetCorrelation(lctx, instr)
		cancel()
		if err == nil {
			corr, corrOK = sanitizeCorrelation(v)
		}
		if !corrOK {
			c.failed("correlation", instr, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if volOK && (c.vol[instr] != vol || !c.has(c.vol, instr)) {
		c.vol[instr] = vol
		c.version++
	}
	if corrOK && (c.corr[instr] != corr || !c.has(c.corr, instr)) {
		c.corr[instr] = corr
		c.version++
	}
	if volOK && corrOK {
		delete(c.stale, instr)
	} else {
		c.stale[instr] = true
	}
}

func (c *InputCache) has(m map[string]float64, k string) bool {
	_, ok := m[k]
	return ok
}

func (c *InputCache) failed(kind, instr string, err error) {
	if err == nil {
		err = ErrDataUnavailable
	}
	c.logger.Warn("risk input lookup failed, keeping last known value",
		slog.String("kind", kind),
		slog.String("instrument", instr),
		slog.String("error", err.Error()),
	)
	if c.OnFailure != nil {
		c.OnFailure(kind)
	}
}

// Trigger asks a running Run loop to refresh now. It never blocks.
func (c *InputCache) Trigger() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Run refreshes the instruments returned by instruments every interval and
// whenever Trigger is called, until ctx is done.
func (c *InputCache) Run(ctx context.Context, interval time.Duration, instruments func() []string) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	c.Refresh(ctx, instruments())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		case <-c.kick:
		}
		c.Refresh(ctx, instruments())
	}
}
