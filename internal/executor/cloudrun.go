package executor

import (
	"context"
	"fmt"
	"golang-jobrunner/config"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/pkg/utils"

	run "cloud.google.com/go/run/apiv2"
	rpb "cloud.google.com/go/run/apiv2/runpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/durationpb"
)

const CloudRunName = "CloudRun"

// CloudRun creates a single-use Cloud Run job per launch, runs it to
// completion and deletes it. Container output stays in Cloud Logging; only
// the execution summary is captured.
type CloudRun struct {
	outcome
	cfg           config.CloudRun
	defaultImage  string
	clientOptions []option.ClientOption
}

func NewCloudRun(cfg config.CloudRun, defaultImage, logDir string, opts ...option.ClientOption) *CloudRun {
	return &CloudRun{
		outcome:       outcome{name: CloudRunName, logDir: logDir},
		cfg:           cfg,
		defaultImage:  defaultImage,
		clientOptions: opts,
	}
}

func (c *CloudRun) UsableForApp(app *model.Application) bool {
	return app != nil && c.cfg.ProjectID != "" && (app.OCIImage != "" || c.defaultImage != "")
}

func (c *CloudRun) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", c.cfg.ProjectID, c.cfg.Region)
}

func (c *CloudRun) buildJob(img string, cmd Command) *rpb.Job {
	env := make([]*rpb.EnvVar, 0, len(cmd.Env))
	for _, key := range utils.SortedKeys(cmd.Env) {
		env = append(env, &rpb.EnvVar{
			Name:   key,
			Values: &rpb.EnvVar_Value{Value: cmd.Env[key]},
		})
	}

	task := &rpb.TaskTemplate{
		Containers: []*rpb.Container{
			{
				Image:   img,
				Command: []string{"/bin/sh", "-c", cmd.Line()},
				Env:     env,
			},
		},
		Retries: &rpb.TaskTemplate_MaxRetries{MaxRetries: 0},
	}
	if c.cfg.Timeout > 0 {
		task.Timeout = durationpb.New(c.cfg.Timeout)
	}

	return &rpb.Job{
		Labels:   map[string]string{managedByLabel: managedBy},
		Template: &rpb.ExecutionTemplate{Template: task},
	}
}

func (c *CloudRun) Launch(ctx context.Context, cmd Command) (int, error) {
	c.begin(cmd)

	img := cmd.Image
	if img == "" {
		img = c.defaultImage
	}
	if img == "" {
		c.finish(ExitCodeLaunchError, "", ErrImageNotConfigured.Error())
		return ExitCodeLaunchError, ErrImageNotConfigured
	}

	client, err := run.NewJobsClient(ctx, c.clientOptions...)
	if err != nil {
		err = fmt.Errorf("failed to create cloud run client: %w", err)
		c.finish(ExitCodeLaunchError, "", err.Error())
		return ExitCodeLaunchError, err
	}
	defer client.Close()

	jobID := JobName(cmd)
	createOp, err := client.CreateJob(ctx, &rpb.CreateJobRequest{
		Parent: c.parent(),
		JobId:  jobID,
		Job:    c.buildJob(img, cmd),
	})
	if err != nil {
		err = fmt.Errorf("failed to create cloud run job: %w", err)
		c.finish(ExitCodeLaunchError, "", err.Error())
		return ExitCodeLaunchError, err
	}
	job, err := createOp.Wait(ctx)
	if err != nil {
		err = fmt.Errorf("failed to create cloud run job: %w", err)
		c.finish(ExitCodeLaunchError, "", err.Error())
		return ExitCodeLaunchError, err
	}
	defer func() {
		if op, err := client.DeleteJob(context.WithoutCancel(ctx), &rpb.DeleteJobRequest{Name: job.GetName()}); err == nil {
			_, _ = op.Wait(context.WithoutCancel(ctx))
		}
	}()

	runOp, err := client.RunJob(ctx, &rpb.RunJobRequest{Name: job.GetName()})
	if err != nil {
		err = fmt.Errorf("failed to run cloud run job: %w", err)
		c.finish(ExitCodeLaunchError, "", err.Error())
		return ExitCodeLaunchError, err
	}
	execution, err := runOp.Wait(ctx)
	if err != nil {
		err = fmt.Errorf("cloud run execution failed: %w", err)
		c.finish(ExitCodeLaunchError, "", err.Error())
		return ExitCodeLaunchError, err
	}

	code := 0
	if execution.GetFailedCount() > 0 || execution.GetCancelledCount() > 0 {
		code = 1
	}
	summary := fmt.Sprintf("execution %s: %d succeeded, %d failed, %d cancelled",
		execution.GetName(), execution.GetSucceededCount(), execution.GetFailedCount(), execution.GetCancelledCount())
	c.finish(code, summary, "")
	return code, nil
}
