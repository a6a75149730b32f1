// README: Cron scheduler pruning route history past its retention period.
package history

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const pruneTimeout = 5 * time.Minute

type Retention struct {
	cron      *cron.Cron
	svc       *Service
	schedule  string
	retention time.Duration
}

func NewRetention(svc *Service, schedule string, retention time.Duration) *Retention {
	return &Retention{
		cron:      cron.New(),
		svc:       svc,
		schedule:  schedule,
		retention: retention,
	}
}

// Start registers the prune job and starts the scheduler.
func (r *Retention) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.run); err != nil {
		return err
	}
	r.cron.Start()
	log.Info().Str("schedule", r.schedule).Dur("retention", r.retention).Msg("route history retention started")
	return nil
}

// Stop waits for a running prune to finish.
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
	log.Info().Msg("route history retention stopped")
}

func (r *Retention) run() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	n, err := r.svc.Prune(ctx, r.retention)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune route history")
		return
	}
	log.Info().Int64("deleted", n).Msg("route history pruned")
}
