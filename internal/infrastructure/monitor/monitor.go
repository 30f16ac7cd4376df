package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campuskit/checkin/repository/bolt"
)

// Monitor periodically pings the configured stores and caches the result
// for the health endpoint. Any of the dependencies may be nil.
type Monitor struct {
	pg    *pgxpool.Pool
	redis *redislib.Client
	bolt  *bolt.Store

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	logger   *zap.Logger
}

func New(pg *pgxpool.Pool, redis *redislib.Client, boltStore *bolt.Store, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		pg:       pg,
		redis:    redis,
		bolt:     boltStore,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	close(m.stopCh)
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.refresh()
	for {
		select {
		case <-ticker.C:
			m.refresh()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) refresh() {
	status := Status{LastCheck: time.Now()}

	if m.pg != nil {
		ok := m.checkPostgres()
		status.PostgreSQL = &ok
	}
	if m.redis != nil {
		ok := m.checkRedis()
		status.Redis = &ok
	}
	if m.bolt != nil {
		ok, size := m.checkBolt()
		status.Bolt = &ok
		status.BoltRecords = size
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

func (m *Monitor) checkPostgres() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return m.pg.Ping(ctx) == nil
}

func (m *Monitor) checkRedis() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.redis.Ping(ctx).Err() == nil
}

func (m *Monitor) checkBolt() (bool, int) {
	size, err := m.bolt.Size()
	if err != nil {
		m.logger.Warn("bolt size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
