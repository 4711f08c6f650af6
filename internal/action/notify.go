package action

import (
	"context"
	"errors"
	"fmt"
	"golang-jobrunner/internal/executor"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/pkg/telegram"
	"golang-jobrunner/pkg/zabbix"
	"os"
	"strconv"
	"strings"
)

const (
	ZabbixName        = "Zabbix"
	TelegramName      = "Telegram"
	CustomCommandName = "CustomCommand"
)

// ZabbixDataKey is the trapper item key an action pushes job output to.
func ZabbixDataKey(rt *model.RunTemplate) string {
	return fmt.Sprintf("zabbix_action-[%s-%s-%d-data]", companyCode(rt), appCode(rt), rt.ID)
}

func companyCode(rt *model.RunTemplate) string {
	if rt.Company != nil {
		return rt.Company.Code
	}
	return ""
}

func appCode(rt *model.RunTemplate) string {
	if rt.App != nil {
		return rt.App.Code
	}
	return ""
}

// Zabbix pushes the job output, or the content of a metrics file, as one
// trapper value.
type Zabbix struct{}

func (a *Zabbix) Name() string        { return ZabbixName }
func (a *Zabbix) Description() string { return "Send the job output to Zabbix" }

func (a *Zabbix) UsableForApp(app *model.Application) bool {
	return app != nil
}

func (a *Zabbix) Perform(ctx context.Context, req *Request) error {
	if req.Zabbix == nil {
		status.Report(ctx, req.Log, status.Warning, ZabbixName, "no zabbix server defined")
		return nil
	}
	rt := req.Outcome.RunTemplate

	key := ZabbixDataKey(rt)
	if custom := req.Options.String("key", ""); custom != "" {
		key = "zabbix_action-[" + custom + "]"
	}

	data := req.Outcome.Stdout
	if path := req.Options.String("metricsfile", ""); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			status.Report(ctx, req.Log, status.Warning, ZabbixName, "required metrics file %s not found", path)
			return nil
		}
		data = string(content)
	}
	if strings.TrimSpace(data) == "" {
		status.Report(ctx, req.Log, status.Warning, ZabbixName, "no data for zabbix provided")
		return nil
	}

	host := req.Zabbix.Host()
	if rt.Company != nil && rt.Company.ZabbixHost != "" {
		host = rt.Company.ZabbixHost
	}

	resp, err := req.Zabbix.Send(ctx, zabbix.Metric{Host: host, Key: key, Value: data})
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", key, err)
	}
	status.Report(ctx, req.Log, status.Debug, ZabbixName, "metric %s sent as %s: %s", key, host, resp.Info)
	return nil
}

// Telegram posts a short job report to a chat.
type Telegram struct{}

func (a *Telegram) Name() string        { return TelegramName }
func (a *Telegram) Description() string { return "Notify a Telegram chat" }

func (a *Telegram) UsableForApp(_ *model.Application) bool {
	return true
}

func (a *Telegram) Perform(ctx context.Context, req *Request) error {
	if req.Notifier == nil || !req.Notifier.Enabled() {
		status.Report(ctx, req.Log, status.Warning, TelegramName, "telegram bot is not configured")
		return nil
	}

	var chatID int64
	if raw := req.Options.String("chat_id", ""); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chat_id %q", raw)
		}
		chatID = id
	}

	o := req.Outcome
	report := telegram.JobReport{
		RunTemplate: o.RunTemplate.Name,
		ExitCode:    o.ExitCode,
		Stdout:      o.Stdout,
		Stderr:      o.Stderr,
		FinishedAt:  req.now(),
	}
	if o.Job != nil {
		report.JobID = o.Job.ID
		report.ScheduleType = string(o.Job.ScheduleType)
	}
	if o.RunTemplate.App != nil {
		report.Application = o.RunTemplate.App.Name
	}
	if o.RunTemplate.Company != nil {
		report.Company = o.RunTemplate.Company.Name
	}

	return req.Notifier.Send(ctx, chatID, telegram.FormatJobReport(report))
}

// CustomCommand runs an extra shell command with the job environment.
type CustomCommand struct{}

func (a *CustomCommand) Name() string        { return CustomCommandName }
func (a *CustomCommand) Description() string { return "Run a custom command" }

func (a *CustomCommand) UsableForApp(app *model.Application) bool {
	return app != nil
}

func (a *CustomCommand) Perform(ctx context.Context, req *Request) error {
	line := strings.TrimSpace(req.Options.String("command", ""))
	if line == "" {
		return errors.New("no command configured")
	}
	if req.Executors == nil {
		return errors.New("no executors available")
	}
	exec, err := req.Executors.Get(executor.NativeName)
	if err != nil {
		return err
	}

	parts := strings.SplitN(line, " ", 2)
	cmd := executor.Command{Executable: parts[0]}
	if len(parts) == 2 {
		cmd.Params = parts[1]
	}
	if req.Outcome.Job != nil {
		cmd.JobID = req.Outcome.Job.ID
		cmd.Env = req.Outcome.Job.Environment()
	}

	status.Report(ctx, req.Log, status.Info, CustomCommandName, "custom command begin: %s", line)
	code, err := exec.Launch(ctx, cmd)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("custom command exited with %d: %s", code, strings.TrimSpace(exec.ErrorOutput()))
	}
	status.Report(ctx, req.Log, status.Success, CustomCommandName, "custom command done")
	return nil
}
