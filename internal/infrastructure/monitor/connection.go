package monitor

import (
	"context"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BufferSizer reports how many writes wait in the offline buffer.
type BufferSizer interface {
	Size() (int, error)
}

// Options configures probe cadence and deadlines.
type Options struct {
	Interval     time.Duration
	ProbeTimeout time.Duration
}

type Monitor struct {
	pg     Pinger
	redis  redislib.UniversalClient
	buffer BufferSizer

	status  Status
	mu      sync.RWMutex
	opts    Options
	stopCh  chan struct{}
	stopped sync.Once
	logger  *zap.Logger
}

func New(pg Pinger, redis redislib.UniversalClient, buf BufferSizer, opts Options, logger *zap.Logger) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		pg:     pg,
		redis:  redis,
		buffer: buf,
		opts:   opts,
		stopCh: make(chan struct{}),
		logger: logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopped.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether Postgres was reachable at the last probe. The
// product buffer drains only while it is.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.PostgreSQL
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	m.Refresh(context.Background())
	for {
		select {
		case <-ticker.C:
			m.Refresh(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// Refresh probes every dependency concurrently and stores the result.
func (m *Monitor) Refresh(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, m.opts.ProbeTimeout)
	defer cancel()

	var status Status
	g, gctx := errgroup.WithContext(ctx)
	// probes report through status; they never fail the group
	g.Go(func() error {
		status.PostgreSQL = m.checkPostgres(gctx)
		return nil
	})
	g.Go(func() error {
		status.Redis = m.checkRedis(gctx)
		return nil
	})
	g.Go(func() error {
		status.Buffer, status.BufferSize = m.checkBuffer()
		return nil
	})
	_ = g.Wait()
	status.LastCheck = time.Now().UTC()

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if !previous.LastCheck.IsZero() && previous.Healthy() != status.Healthy() {
		m.logger.Warn("dependency status changed",
			zap.Bool("postgresql", status.PostgreSQL),
			zap.Bool("redis", status.Redis))
	}
	return status
}

func (m *Monitor) checkPostgres(ctx context.Context) bool {
	if m.pg == nil {
		return false
	}
	return m.pg.Ping(ctx) == nil
}

func (m *Monitor) checkRedis(ctx context.Context) bool {
	if m.redis == nil {
		return false
	}
	return m.redis.Ping(ctx).Err() == nil
}

func (m *Monitor) checkBuffer() (bool, int) {
	if m.buffer == nil {
		return false, 0
	}
	size, err := m.buffer.Size()
	if err != nil {
		m.logger.Warn("buffer size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
