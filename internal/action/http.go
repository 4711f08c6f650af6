package action

import (
	"context"
	"errors"
	"fmt"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/pkg/logger"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	WebHookName      = "WebHook"
	GithubName       = "Github"
	RedmineIssueName = "RedmineIssue"

	defaultGithubAPI = "https://api.github.com"
)

// post sends body as JSON and retries transport errors, 429 and 5xx
// answers with exponential backoff.
func post(ctx context.Context, req *Request, origin, endpoint string, body interface{}, headers map[string]string) ([]byte, error) {
	if req.HTTP == nil {
		return nil, errors.New("no http client available")
	}
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"

	var respBody []byte
	operation := func() error {
		resp, err := req.HTTP.Post(ctx, endpoint, body, headers, nil)
		if err != nil {
			return err
		}
		respBody = resp.Body
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("%s answered %d", endpoint, resp.StatusCode)
		}
		if !resp.IsSuccess() {
			return backoff.Permanent(fmt.Errorf("%s answered %d: %s", endpoint, resp.StatusCode, string(resp.Body)))
		}
		return nil
	}

	var b backoff.BackOff = backoff.NewExponentialBackOff()
	if req.BackOff != nil {
		b = req.BackOff()
	}
	b = backoff.WithContext(backoff.WithMaxRetries(b, req.MaxRetries), ctx)

	err := backoff.RetryNotify(operation, b, func(err error, next time.Duration) {
		req.Log.WarnContext(ctx, "Retrying action request",
			logger.StringField("action", origin),
			logger.ErrorField(err),
			logger.DurationField("next", next),
		)
	})
	return respBody, err
}

type webhookPayload struct {
	JobID         uint      `json:"job_id"`
	JobUUID       string    `json:"job_uuid"`
	RunTemplateID uint      `json:"runtemplate_id"`
	Application   string    `json:"application"`
	Company       string    `json:"company"`
	Command       string    `json:"command"`
	ExitCode      int       `json:"exit_code"`
	Success       bool      `json:"success"`
	Stdout        string    `json:"stdout"`
	Stderr        string    `json:"stderr"`
	FinishedAt    time.Time `json:"finished_at"`
}

// WebHook posts the job outcome as JSON to the configured uri.
type WebHook struct{}

func (a *WebHook) Name() string        { return WebHookName }
func (a *WebHook) Description() string { return "Post the job outcome to a URI" }

func (a *WebHook) UsableForApp(_ *model.Application) bool {
	return true
}

func (a *WebHook) Perform(ctx context.Context, req *Request) error {
	uri := req.Options.String("uri", "")
	if uri == "" {
		status.Report(ctx, req.Log, status.Warning, WebHookName, "no uri configured")
		return nil
	}

	o := req.Outcome
	payload := webhookPayload{
		RunTemplateID: o.RunTemplate.ID,
		ExitCode:      o.ExitCode,
		Success:       o.Success(),
		Stdout:        o.Stdout,
		Stderr:        o.Stderr,
		FinishedAt:    req.now(),
	}
	if o.Job != nil {
		payload.JobID = o.Job.ID
		payload.JobUUID = o.Job.UUID
		payload.Command = o.Job.Command
	}
	if o.RunTemplate.App != nil {
		payload.Application = o.RunTemplate.App.Name
	}
	if o.RunTemplate.Company != nil {
		payload.Company = o.RunTemplate.Company.Name
	}

	body, err := post(ctx, req, WebHookName, uri, payload, nil)
	if err != nil {
		return err
	}
	status.Report(ctx, req.Log, status.Debug, WebHookName, "webhook answered: %s", string(body))
	return nil
}

func issueTitle(o Outcome) string {
	name := "job"
	if o.RunTemplate.App != nil {
		name = o.RunTemplate.App.Name
	}
	return name + " problem"
}

func issueBody(o Outcome) string {
	var b strings.Builder
	if o.Job != nil {
		fmt.Fprintf(&b, "JOB ID: %d\n\n", o.Job.ID)
		fmt.Fprintf(&b, "Command: %s\n\n", o.Job.Command)
	}
	fmt.Fprintf(&b, "ExitCode: %d\n\n", o.ExitCode)
	fmt.Fprintf(&b, "Stdout:\n```\n%s\n```\n", o.Stdout)
	fmt.Fprintf(&b, "Stderr:\n```\n%s\n```\n", o.Stderr)
	return b.String()
}

// Github opens an issue in the repository named by the application
// homepage.
type Github struct{}

func (a *Github) Name() string        { return GithubName }
func (a *Github) Description() string { return "Open a GitHub issue from the job output" }

func (a *Github) UsableForApp(app *model.Application) bool {
	return app != nil && strings.Contains(app.Homepage, "github.com")
}

func (a *Github) Perform(ctx context.Context, req *Request) error {
	app := req.Outcome.RunTemplate.App
	if app == nil {
		return errors.New("run template has no application")
	}
	homepage, err := url.Parse(app.Homepage)
	if err != nil || homepage.Path == "" {
		return fmt.Errorf("cannot derive repository from homepage %q", app.Homepage)
	}

	apiURL := strings.TrimRight(req.Options.String("api_url", defaultGithubAPI), "/")
	endpoint := apiURL + "/repos" + strings.TrimSuffix(homepage.Path, "/") + "/issues"
	headers := map[string]string{
		"Authorization":        "Bearer " + req.Options.String("token", ""),
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	body := map[string]interface{}{
		"title":  issueTitle(req.Outcome),
		"body":   issueBody(req.Outcome),
		"labels": []string{"Bug"},
	}

	resp, err := post(ctx, req, GithubName, endpoint, body, headers)
	if err != nil {
		return err
	}
	status.Report(ctx, req.Log, status.Success, GithubName, "issue created: %s", string(resp))
	return nil
}

// RedmineIssue files a bug in a Redmine project.
type RedmineIssue struct{}

func (a *RedmineIssue) Name() string        { return RedmineIssueName }
func (a *RedmineIssue) Description() string { return "Open a Redmine issue from the job output" }

func (a *RedmineIssue) UsableForApp(app *model.Application) bool {
	return app != nil
}

func (a *RedmineIssue) Perform(ctx context.Context, req *Request) error {
	base := strings.TrimRight(req.Options.String("url", ""), "/")
	if base == "" {
		return errors.New("redmine url is not configured")
	}
	body := map[string]interface{}{
		"issue": map[string]interface{}{
			"project_id":  req.Options.String("project_id", ""),
			"subject":     issueTitle(req.Outcome),
			"description": issueBody(req.Outcome),
			"tracker_id":  1,
		},
	}
	headers := map[string]string{"X-Redmine-API-Key": req.Options.String("token", "")}

	resp, err := post(ctx, req, RedmineIssueName, base+"/issues.json", body, headers)
	if err != nil {
		return err
	}
	status.Report(ctx, req.Log, status.Success, RedmineIssueName, "issue created: %s", string(resp))
	return nil
}
