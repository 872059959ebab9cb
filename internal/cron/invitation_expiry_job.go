package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/avermeer/teambase-backend/pkg/logger"
)

type invitationsExpiryRepo interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// InvitationExpiryJobParams configures the invitation cleanup cron job.
type InvitationExpiryJobParams struct {
	Logger     *logger.Logger
	Repository invitationsExpiryRepo
	Now        func() time.Time
}

// NewInvitationExpiryJob builds a job that deletes invitations whose
// expiry has passed. Expired invitations are already unusable; this keeps
// the table from accumulating dead rows.
func NewInvitationExpiryJob(params InvitationExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("invitations repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &invitationExpiryJob{
		logg: params.Logger,
		repo: params.Repository,
		now:  now,
	}, nil
}

type invitationExpiryJob struct {
	logg *logger.Logger
	repo invitationsExpiryRepo
	now  func() time.Time
}

func (j *invitationExpiryJob) Name() string { return "invitation-expiry" }

func (j *invitationExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	deleted, err := j.repo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("invitation expiry cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "invitation expiry cleanup complete")
	return nil
}
