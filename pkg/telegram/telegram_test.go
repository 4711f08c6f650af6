package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang-jobrunner/config"
	"golang-jobrunner/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Disabled(t *testing.T) {
	n, err := NewNotifier(&config.TelegramConfig{}, logger.NewNop(), "")
	require.NoError(t, err)

	assert.False(t, n.Enabled())
	assert.ErrorIs(t, n.Send(context.Background(), 1, "hi"), ErrNotConfigured)
}

func TestNotifier_Send(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	}))
	defer srv.Close()

	cfg := &config.TelegramConfig{BotToken: "token", ChatID: 42, MaxGlobalRequestPerSecond: 10, TimeoutDuration: time.Second}
	n, err := NewNotifier(cfg, logger.NewNop(), srv.URL)
	require.NoError(t, err)
	require.True(t, n.Enabled())

	require.NoError(t, n.Alert(context.Background(), "job failed"))
	assert.True(t, strings.HasSuffix(gotPath, "/sendMessage"))
	assert.Equal(t, "job failed", gotBody["text"])
}

func TestFormatJobReport(t *testing.T) {
	report := FormatJobReport(JobReport{
		JobID:       7,
		RunTemplate: "nightly",
		Application: "backup",
		Company:     "acme",
		ExitCode:    2,
		Stderr:      "disk full",
		FinishedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	assert.Contains(t, report, "Job #7 failed (exit code 2)")
	assert.Contains(t, report, "backup / nightly @ acme")
	assert.Contains(t, report, "disk full")
}
