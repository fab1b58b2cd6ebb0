package fabric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/puddle/v2"
	"github.com/ruteri/did-ledger-adapter/interfaces"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxTotal = 10
	DefaultMinIdle  = 2
	DefaultMaxIdle  = 5
)

var ErrPoolClosed = errors.New("gateway pool is closed")

type PoolConfig struct {
	MaxTotal int
	MinIdle  int
	MaxIdle  int
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxTotal <= 0 {
		c.MaxTotal = DefaultMaxTotal
	}
	if c.MinIdle < 0 {
		c.MinIdle = 0
	}
	if c.MaxIdle <= 0 {
		c.MaxIdle = DefaultMaxIdle
	}
	if c.MaxIdle > c.MaxTotal {
		c.MaxIdle = c.MaxTotal
	}
	if c.MinIdle > c.MaxIdle {
		c.MinIdle = c.MaxIdle
	}
	return c
}

// DefaultPoolConfig returns the pool sizing used when nothing is configured.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxTotal: DefaultMaxTotal, MinIdle: DefaultMinIdle, MaxIdle: DefaultMaxIdle}
}

// PoolStats is a snapshot of pool occupancy.
type PoolStats struct {
	Total    int
	Idle     int
	Acquired int
}

// GatewayPool bounds the number of live gateways. Waiters are served in
// arrival order when the pool is exhausted.
type GatewayPool struct {
	cfg     PoolConfig
	factory GatewayFactory
	pool    *puddle.Pool[Gateway]
	closed  atomic.Bool
	filling atomic.Bool
	log     *slog.Logger
}

// NewGatewayPool creates the pool and pre-warms MinIdle gateways. Warm-up
// failures are logged; gateways are then created on demand.
func NewGatewayPool(ctx context.Context, cfg PoolConfig, factory GatewayFactory, log *slog.Logger) (*GatewayPool, error) {
	cfg = cfg.withDefaults()

	p := &GatewayPool{cfg: cfg, factory: factory, log: log}
	pool, err := puddle.NewPool(&puddle.Config[Gateway]{
		Constructor: factory.Create,
		Destructor:  p.destroy,
		MaxSize:     int32(cfg.MaxTotal),
	})
	if err != nil {
		return nil, err
	}
	p.pool = pool

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.MinIdle; i++ {
		g.Go(func() error {
			return pool.CreateResource(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("Failed to pre-warm gateway pool", "err", err, slog.Int("minIdle", cfg.MinIdle))
	}

	return p, nil
}

// Do checks out a gateway, runs fn with it and checks it back in on every
// path. A checkout failure is a connection error; an fn failure is a
// transaction error.
func (p *GatewayPool) Do(ctx context.Context, fn func(ctx context.Context, gw Gateway) error) error {
	res, err := p.checkout(ctx)
	if err != nil {
		p.log.Error("Failed to check out gateway", "err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrConnection, err)
	}
	defer p.checkin(res)

	if err := fn(ctx, res.Value()); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrTransaction, err)
	}
	return nil
}

// checkout replaces gateways that fail validation. Every acquire may build a
// new gateway, so the attempts are bounded by the pool size.
func (p *GatewayPool) checkout(ctx context.Context) (*puddle.Resource[Gateway], error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	for attempt := 0; attempt <= p.cfg.MaxTotal; attempt++ {
		res, err := p.pool.Acquire(ctx)
		if err != nil {
			if errors.Is(err, puddle.ErrClosedPool) {
				return nil, ErrPoolClosed
			}
			return nil, err
		}
		if p.factory.Validate(res.Value()) {
			return res, nil
		}
		p.log.Warn("Discarding invalid gateway", slog.Int("attempt", attempt))
		res.Destroy()
	}
	return nil, ErrGatewayInvalid
}

// checkin keeps at most MaxIdle gateways idle, and starts a refill when
// fewer than MinIdle remain.
func (p *GatewayPool) checkin(res *puddle.Resource[Gateway]) {
	if int(p.pool.Stat().IdleResources()) >= p.cfg.MaxIdle {
		res.Destroy()
		return
	}
	res.Release()

	if int(p.pool.Stat().IdleResources()) < p.cfg.MinIdle && p.filling.CompareAndSwap(false, true) {
		go p.refill()
	}
}

// refill creates gateways until MinIdle are idle. It stops at the first
// failure; the next checkin tries again.
func (p *GatewayPool) refill() {
	defer p.filling.Store(false)
	for !p.closed.Load() && int(p.pool.Stat().IdleResources()) < p.cfg.MinIdle {
		err := p.pool.CreateResource(context.Background())
		if errors.Is(err, puddle.ErrNotAvailable) || errors.Is(err, puddle.ErrClosedPool) {
			return
		}
		if err != nil {
			p.log.Warn("Failed to refill gateway pool", "err", err, slog.Int("minIdle", p.cfg.MinIdle))
			return
		}
	}
}

func (p *GatewayPool) destroy(gw Gateway) {
	if err := gw.Close(); err != nil {
		p.log.Warn("Failed to close gateway", "err", err)
	}
}

func (p *GatewayPool) Stats() PoolStats {
	stat := p.pool.Stat()
	return PoolStats{
		Total:    int(stat.TotalResources()),
		Idle:     int(stat.IdleResources()),
		Acquired: int(stat.AcquiredResources()),
	}
}

// Close destroys every pooled gateway and then the factory's shared
// resources. It waits for checked-out gateways to be returned. Calling
// Close more than once is a no-op.
func (p *GatewayPool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.pool.Close()
	return p.factory.Close()
}
