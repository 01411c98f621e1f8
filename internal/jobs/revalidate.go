package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/acetvpair/tvlink-go/internal/pairing"
)

// RevalidateJob periodically re-runs the pairing status check so a
// pairing revoked while the client sat idle is noticed without a user
// action. The check on load and on visibility-regain are triggered
// separately by the gateway.
type RevalidateJob struct {
	monitor  *pairing.Monitor
	interval time.Duration
	done     chan struct{}
}

func NewRevalidateJob(monitor *pairing.Monitor, interval time.Duration) *RevalidateJob {
	return &RevalidateJob{
		monitor:  monitor,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *RevalidateJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("pairing revalidate job started")
}

func (j *RevalidateJob) Stop() {
	close(j.done)
	log.Info().Msg("pairing revalidate job stopped")
}

func (j *RevalidateJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.check()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.check()
		}
	}
}

func (j *RevalidateJob) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	paired, err := j.monitor.CheckPaired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("periodic pairing check failed")
		return
	}
	log.Debug().Bool("paired", paired).Msg("periodic pairing check done")
}
