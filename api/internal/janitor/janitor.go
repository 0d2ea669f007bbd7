package janitor

import (
	"context"
	"time"

	"github.com/robfig/cron"
	"go.uber.org/zap"

	"cf-hints/api/internal/metrics"
)

// Expirer drops in-memory halves older than cutoff.
type Expirer interface {
	Expire(cutoff time.Time) int
}

// Sweeper removes abandoned on-disk submissions older than cutoff.
type Sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// Janitor periodically forgets problems whose second half never arrived.
type Janitor struct {
	pending Expirer
	files   Sweeper
	ttl     time.Duration
	log     *zap.Logger
	m       *metrics.Metrics
	now     func() time.Time
	cron    *cron.Cron
}

func New(pending Expirer, files Sweeper, ttl time.Duration, log *zap.Logger, m *metrics.Metrics) *Janitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Janitor{
		pending: pending,
		files:   files,
		ttl:     ttl,
		log:     log.Named("janitor"),
		m:       m,
		now:     time.Now,
	}
}

// Start schedules RunOnce, e.g. "@every 1h".
func (j *Janitor) Start(schedule string) error {
	c := cron.New()
	if err := c.AddFunc(schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return err
	}
	c.Start()
	j.cron = c
	j.log.Info("janitor scheduled", zap.String("schedule", schedule), zap.Duration("ttl", j.ttl))
	return nil
}

func (j *Janitor) Stop() {
	if j.cron != nil {
		j.cron.Stop()
	}
}

// RunOnce expires pending halves and sweeps stale directories.
// It returns how many of each were removed.
func (j *Janitor) RunOnce(ctx context.Context) (expired, swept int) {
	cutoff := j.now().Add(-j.ttl)
	if j.pending != nil {
		expired = j.pending.Expire(cutoff)
	}
	if j.files != nil {
		n, err := j.files.Sweep(ctx, cutoff)
		if err != nil {
			j.log.Warn("sweep failed", zap.Error(err))
		}
		swept = n
	}
	j.m.RecordSwept(expired + swept)
	if expired+swept > 0 {
		j.log.Info("janitor run", zap.Int("expired", expired), zap.Int("swept", swept))
	}
	return expired, swept
}
