package scheduler

import (
	"context"

	"github.com/rs/zerolog"
)

// LocationPruner forgets locations that have gone stale
type LocationPruner interface {
	PruneStaleLocations(ctx context.Context) (int64, error)
}

// PruneLocationsJob clears user locations older than the configured TTL
type PruneLocationsJob struct {
	pruner LocationPruner
	log    zerolog.Logger
}

// NewPruneLocationsJob creates a new prune job
func NewPruneLocationsJob(pruner LocationPruner, log zerolog.Logger) *PruneLocationsJob {
	return &PruneLocationsJob{
		pruner: pruner,
		log:    log.With().Str("job", "prune_locations").Logger(),
	}
}

// Name returns the job name
func (j *PruneLocationsJob) Name() string {
	return "prune_locations"
}

// Run executes the job
func (j *PruneLocationsJob) Run(ctx context.Context) error {
	n, err := j.pruner.PruneStaleLocations(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		j.log.Info().Int64("cleared", n).Msg("Stale locations cleared")
	}
	return nil
}
