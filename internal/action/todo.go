package action

import (
	"context"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/status"
	"strings"
)

const ToDoName = "ToDo"

// ToDo composes an issue from the job output. With a url option the issue
// is posted as {"title", "body"}; otherwise it is only reported.
type ToDo struct{}

func (a *ToDo) Name() string        { return ToDoName }
func (a *ToDo) Description() string { return "Make a ToDo issue from the job output" }

func (a *ToDo) UsableForApp(app *model.Application) bool {
	return app != nil
}

func (a *ToDo) Perform(ctx context.Context, req *Request) error {
	title := issueTitle(req.Outcome)
	body := issueBody(req.Outcome)

	endpoint := strings.TrimSpace(req.Options.String("url", ""))
	if endpoint == "" {
		status.Report(ctx, req.Log, status.Info, ToDoName, "%s\n\n%s", title, body)
		return nil
	}

	headers := map[string]string{}
	if token := req.Options.String("token", ""); token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	resp, err := post(ctx, req, ToDoName, endpoint, map[string]string{"title": title, "body": body}, headers)
	if err != nil {
		return err
	}
	status.Report(ctx, req.Log, status.Success, ToDoName, "issue created: %s", string(resp))
	return nil
}
