package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-jobrunner/pkg/utils"
)

// JobReport is the subset of a finished job rendered into a notification.
type JobReport struct {
	JobID        uint
	RunTemplate  string
	Application  string
	Company      string
	ExitCode     int
	Stdout       string
	Stderr       string
	FinishedAt   time.Time
	ScheduleType string
}

// FormatJobReport renders a finished job for a chat message.
func FormatJobReport(r JobReport) string {
	var builder strings.Builder

	status := "succeeded"
	if r.ExitCode != 0 {
		status = "failed"
	}
	builder.WriteString(fmt.Sprintf("Job #%d %s (exit code %d)\n", r.JobID, status, r.ExitCode))
	builder.WriteString(fmt.Sprintf("%s / %s", r.Application, r.RunTemplate))
	if r.Company != "" {
		builder.WriteString(fmt.Sprintf(" @ %s", r.Company))
	}
	builder.WriteString("\n")
	if r.ScheduleType != "" {
		builder.WriteString(fmt.Sprintf("schedule: %s\n", r.ScheduleType))
	}
	builder.WriteString(fmt.Sprintf("%s\n", utils.PrettyDate(r.FinishedAt)))
	if r.Stderr != "" && r.ExitCode != 0 {
		builder.WriteString("\n")
		builder.WriteString(utils.Truncate(r.Stderr, 1500))
	} else if r.Stdout != "" {
		builder.WriteString("\n")
		builder.WriteString(utils.Truncate(r.Stdout, 1500))
	}
	return builder.String()
}
