// Package maintenance runs periodic cleanup over ingestion state.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/config"
)

// Messages recorded on swept properties.
const (
	MsgInterrupted = "pipeline interrupted"
	MsgExpired     = "confirmation link expired"
)

// Store is the persistence the sweeper needs.
type Store interface {
	FailStuckProperties(ctx context.Context, before time.Time, message string) (int, error)
	ExpireConfirmations(ctx context.Context, before time.Time, message string) (int, error)
}

// Report counts the properties changed by one sweep.
type Report struct {
	Interrupted int
	Expired     int
}

// Sweeper fails abandoned runs and expires old confirmation links.
type Sweeper struct {
	store           Store
	stuckAfter      time.Duration
	confirmationTTL time.Duration
	now             func() time.Time
}

// NewSweeper creates a Sweeper. A zero confirmation TTL disables expiry.
func NewSweeper(st Store, cfg config.MaintenanceConfig) *Sweeper {
	return &Sweeper{
		store:           st,
		stuckAfter:      time.Duration(cfg.StuckAfterMinutes) * time.Minute,
		confirmationTTL: time.Duration(cfg.ConfirmationTTLHours) * time.Hour,
		now:             time.Now,
	}
}

// Sweep runs one pass.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	var r Report
	now := s.now().UTC()

	if s.stuckAfter > 0 {
		n, err := s.store.FailStuckProperties(ctx, now.Add(-s.stuckAfter), MsgInterrupted)
		if err != nil {
			return r, eris.Wrap(err, "maintenance: fail stuck properties")
		}
		r.Interrupted = n
	}
	if s.confirmationTTL > 0 {
		n, err := s.store.ExpireConfirmations(ctx, now.Add(-s.confirmationTTL), MsgExpired)
		if err != nil {
			return r, eris.Wrap(err, "maintenance: expire confirmations")
		}
		r.Expired = n
	}

	if r.Interrupted > 0 || r.Expired > 0 {
		zap.L().Info("maintenance: sweep complete",
			zap.Int("interrupted", r.Interrupted),
			zap.Int("expired", r.Expired),
		)
	}
	return r, nil
}

// Schedule runs Sweep on spec, a cron expression or descriptor such as
// "@every 5m". The returned stop function waits for a running sweep.
func (s *Sweeper) Schedule(ctx context.Context, spec string) (func(), error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Sweep(ctx); err != nil {
			zap.L().Error("maintenance: scheduled sweep failed", zap.Error(err))
		}
	}); err != nil {
		return nil, eris.Wrapf(err, "maintenance: invalid schedule %q", spec)
	}
	c.Start()
	zap.L().Info("maintenance: sweeper scheduled", zap.String("schedule", spec))

	return func() { <-c.Stop().Done() }, nil
}
