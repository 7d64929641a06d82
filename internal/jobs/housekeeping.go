package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"timesheets/internal/config"
)

const (
	JobRefreshTokenCleanup = "refresh-token-cleanup"
	JobResetTokenCleanup   = "reset-token-cleanup"
	JobCSRFSweep           = "csrf-sweep"
	JobDraftReminders      = "draft-reminders"
	JobApprovalDigest      = "approval-digest"
)

type RefreshTokenSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

type ResetTokenSweeper interface {
	SweepResetTokens(ctx context.Context) (int64, error)
}

type CSRFSweeper interface {
	Sweep() int
}

type Reminders interface {
	SendDraftReminders(ctx context.Context, age time.Duration) (int, error)
	SendApprovalDigest(ctx context.Context) (int, error)
}

type Housekeeping struct {
	RefreshTokens RefreshTokenSweeper
	ResetTokens   ResetTokenSweeper
	CSRF          CSRFSweeper
	Reminders     Reminders
}

// RegisterHousekeeping wires the standard maintenance jobs. Cleanup jobs are
// idempotent; a duplicated reminder or digest run only repeats a message.
func RegisterHousekeeping(r *Registry, cfg config.JobsConfig, deps Housekeeping, log zerolog.Logger) error {
	jobs := []struct {
		name     string
		schedule string
		task     Task
	}{
		{
			name:     JobRefreshTokenCleanup,
			schedule: cfg.RefreshTokenCleanup,
			task: func(ctx context.Context) error {
				removed, err := deps.RefreshTokens.SweepExpired(ctx)
				if err != nil {
					return err
				}
				log.Info().Int64("removed", removed).Msg("expired refresh tokens removed")
				return nil
			},
		},
		{
			name:     JobResetTokenCleanup,
			schedule: cfg.ResetTokenCleanup,
			task: func(ctx context.Context) error {
				removed, err := deps.ResetTokens.SweepResetTokens(ctx)
				if err != nil {
					return err
				}
				log.Info().Int64("removed", removed).Msg("expired reset tokens removed")
				return nil
			},
		},
		{
			name:     JobCSRFSweep,
			schedule: cfg.CSRFSweep,
			task: func(context.Context) error {
				log.Debug().Int("removed", deps.CSRF.Sweep()).Msg("csrf entries swept")
				return nil
			},
		},
		{
			name:     JobDraftReminders,
			schedule: cfg.DraftReminders,
			task: func(ctx context.Context) error {
				sent, err := deps.Reminders.SendDraftReminders(ctx, cfg.DraftReminderAge)
				if err != nil {
					return err
				}
				log.Info().Int("sent", sent).Msg("draft reminders dispatched")
				return nil
			},
		},
		{
			name:     JobApprovalDigest,
			schedule: cfg.ApprovalDigest,
			task: func(ctx context.Context) error {
				pending, err := deps.Reminders.SendApprovalDigest(ctx)
				if err != nil {
					return err
				}
				log.Info().Int("pending", pending).Msg("approval digest dispatched")
				return nil
			},
		},
	}

	for _, j := range jobs {
		if err := r.Register(j.name, j.schedule, j.task); err != nil {
			return err
		}
	}
	return nil
}
