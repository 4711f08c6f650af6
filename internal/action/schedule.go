package action

import (
	"context"
	"errors"
	"fmt"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/status"
	"strconv"
	"time"
)

const (
	RescheduleName       = "Reschedule"
	ChainRuntemplateName = "ChainRuntemplate"
	SleepName            = "Sleep"
	StopName             = "Stop"

	DefaultRescheduleDelay = 3600
	DefaultSleepSeconds    = 60
)

// Reschedule queues the same run template again after a delay.
type Reschedule struct{}

func (a *Reschedule) Name() string        { return RescheduleName }
func (a *Reschedule) Description() string { return "Run the job again after a delay" }

func (a *Reschedule) UsableForApp(_ *model.Application) bool {
	return true
}

func (a *Reschedule) Perform(ctx context.Context, req *Request) error {
	if req.Scheduler == nil {
		return errors.New("no job scheduler available")
	}
	delay := req.Options.Int("delay", DefaultRescheduleDelay)
	when := req.now().Add(time.Duration(delay) * time.Second)

	job, err := req.Scheduler.Schedule(ctx, FollowUp{
		RunTemplateID: req.Outcome.RunTemplate.ID,
		At:            when,
		ScheduleType:  model.ScheduleTypeReschedule,
	})
	if err != nil {
		return fmt.Errorf("failed to reschedule run template %d: %w", req.Outcome.RunTemplate.ID, err)
	}
	status.Report(ctx, req.Log, status.Success, RescheduleName, "job #%d rescheduled at %s", job.ID, when.Format(time.RFC3339))
	return nil
}

// ChainRuntemplate starts another run template right away, handing over
// the current job's environment.
type ChainRuntemplate struct{}

func (a *ChainRuntemplate) Name() string        { return ChainRuntemplateName }
func (a *ChainRuntemplate) Description() string { return "Trigger another run template" }

func (a *ChainRuntemplate) UsableForApp(_ *model.Application) bool {
	return true
}

func (a *ChainRuntemplate) Perform(ctx context.Context, req *Request) error {
	if req.Scheduler == nil {
		return errors.New("no job scheduler available")
	}
	raw := req.Options.String("rtid", "")
	target, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || target == 0 {
		return fmt.Errorf("invalid chained run template id %q", raw)
	}
	if uint(target) == req.Outcome.RunTemplate.ID {
		return fmt.Errorf("run template #%d cannot chain itself", target)
	}

	followUp := FollowUp{
		RunTemplateID: uint(target),
		At:            req.now(),
		ScheduleType:  model.ScheduleTypeChained,
	}
	if req.Outcome.Job != nil {
		followUp.Env = req.Outcome.Job.Environment()
		followUp.Executor = req.Outcome.Job.Executor
	}
	job, err := req.Scheduler.Schedule(ctx, followUp)
	if err != nil {
		return fmt.Errorf("failed to chain run template %d: %w", target, err)
	}
	status.Report(ctx, req.Log, status.Success, ChainRuntemplateName, "run template #%d chained as job #%d", target, job.ID)
	return nil
}

// Sleep delays the remaining actions.
type Sleep struct{}

func (a *Sleep) Name() string        { return SleepName }
func (a *Sleep) Description() string { return "Wait before the next action" }

func (a *Sleep) UsableForApp(_ *model.Application) bool {
	return true
}

func (a *Sleep) Perform(ctx context.Context, req *Request) error {
	seconds := req.Options.Int("seconds", DefaultSleepSeconds)
	status.Report(ctx, req.Log, status.Info, SleepName, "sleeping for %d seconds", seconds)
	return req.sleep(ctx, time.Duration(seconds)*time.Second)
}

// Stop disables further periodic runs of the run template.
type Stop struct{}

func (a *Stop) Name() string        { return StopName }
func (a *Stop) Description() string { return "Disable the run template" }

func (a *Stop) UsableForApp(_ *model.Application) bool {
	return true
}

func (a *Stop) Perform(ctx context.Context, req *Request) error {
	if req.State == nil {
		return errors.New("no run template state switcher available")
	}
	ok, err := req.State.SetState(ctx, req.Outcome.RunTemplate.ID, false)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run template %d was not disabled", req.Outcome.RunTemplate.ID)
	}
	return nil
}
