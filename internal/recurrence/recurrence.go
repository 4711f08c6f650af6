// Package recurrence maps the single-letter schedule codes stored on run
// templates to interval names, cron expressions and nominal durations.
package recurrence

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	Disabled = "n"
	Minutely = "i"
	Hourly   = "h"
	Daily    = "d"
	Weekly   = "w"
	Monthly  = "m"
	Yearly   = "y"
	Custom   = "c"

	// NotAvailable is returned for unknown codes and interval names.
	NotAvailable = "n/a"
)

type entry struct {
	interval string
	seconds  int64
	cron     string
}

var table = map[string]entry{
	Disabled: {interval: "disabled", seconds: 0, cron: ""},
	Minutely: {interval: "minutely", seconds: 60, cron: "* * * * *"},
	Hourly:   {interval: "hourly", seconds: 3600, cron: "0 * * * *"},
	Daily:    {interval: "daily", seconds: 86400, cron: "0 0 * * *"},
	Weekly:   {interval: "weekly", seconds: 604800, cron: "0 0 * * 0"},
	Monthly:  {interval: "monthly", seconds: 2629743, cron: "0 0 1 * *"},
	Yearly:   {interval: "yearly", seconds: 31556926, cron: "0 0 1 1 *"},
	Custom:   {interval: "custom", seconds: 0, cron: ""},
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Codes lists the known codes, shortest period first.
func Codes() []string {
	return []string{Disabled, Minutely, Hourly, Daily, Weekly, Monthly, Yearly, Custom}
}

func IsValid(code string) bool {
	_, ok := table[code]
	return ok
}

// IsPeriodic reports whether a template with this code runs on its own.
func IsPeriodic(code string) bool {
	return IsValid(code) && code != Disabled
}

// CodeToSeconds returns the nominal period, 0 for unknown, disabled and custom.
func CodeToSeconds(code string) int64 {
	return table[code].seconds
}

// CodeToInterval returns the interval name or NotAvailable.
func CodeToInterval(code string) string {
	if e, ok := table[code]; ok {
		return e.interval
	}
	return NotAvailable
}

// IntervalToCode is the inverse of CodeToInterval.
func IntervalToCode(interval string) string {
	for code, e := range table {
		if e.interval == interval {
			return code
		}
	}
	return NotAvailable
}

// CodeToCron returns the fixed cron expression, empty for n, c and unknown.
func CodeToCron(code string) string {
	return table[code].cron
}

// Expression resolves the cron expression for a template: the custom
// expression for code c, the fixed one otherwise.
func Expression(code, custom string) string {
	if code == Custom {
		return custom
	}
	return CodeToCron(code)
}

// Validate checks that expr parses.
func Validate(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Next returns the first occurrence strictly after from. ok is false for
// codes that never run on their own.
func Next(code, custom string, from time.Time) (time.Time, bool, error) {
	expr := Expression(code, custom)
	if expr == "" {
		return time.Time{}, false, nil
	}
	schedule, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule.Next(from), true, nil
}
