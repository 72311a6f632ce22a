package registry

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically deletes expired deployment leases, independent of
// the request path (§4.8, §5 suspension point iii).
type Sweeper struct {
	svc  *Service
	cron *cron.Cron
}

// NewSweeper creates a Sweeper that runs every intervalSpec (a standard
// cron expression, e.g. "@every 60s").
func NewSweeper(svc *Service, intervalSpec string) (*Sweeper, error) {
	c := cron.New()
	s := &Sweeper{svc: svc, cron: c}
	_, err := c.AddFunc(intervalSpec, s.sweep)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the sweeper's background schedule.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop cancels the sweeper's schedule and waits for any in-flight sweep to finish.
func (s *Sweeper) Stop() { <-s.cron.Stop().Done() }

func (s *Sweeper) sweep() {
	deleted, err := s.svc.SweepExpired(context.Background())
	if err != nil {
		slog.Error("registry sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("registry sweep deleted expired deployments", "count", deleted)
	}
}
