package infrastructure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/vidharvest/internal/domain"
	"go.uber.org/zap"
)

func TestNotificationService_Disabled(t *testing.T) {
	n := NewNotificationService(&domain.NotificationConfig{Enabled: false, Method: "notify-send"}, zap.NewNop())
	called := false
	n.run = func(name string, args ...string) error {
		called = true
		return nil
	}

	assert.NoError(t, n.Send("title", "msg"))
	assert.False(t, called)
}

func TestNotificationService_NotifyRunFinished(t *testing.T) {
	n := NewNotificationService(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, zap.NewNop())
	var gotName string
	var gotArgs []string
	n.run = func(name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	}

	n.NotifyRunFinished(&domain.RunStats{Succeeded: 3, Failed: 1, Unprocessed: 2, Interrupted: true})
	assert.Equal(t, "notify-send", gotName)
	assert.Equal(t, []string{"Run Interrupted", "3 completed, 1 failed, 2 unprocessed"}, gotArgs)
}

func TestNotificationService_OSAScriptError(t *testing.T) {
	n := NewNotificationService(&domain.NotificationConfig{Enabled: true, Method: "osascript", Sound: true}, zap.NewNop())
	var script string
	n.run = func(name string, args ...string) error {
		script = args[1]
		return errors.New("not macOS")
	}

	assert.Error(t, n.Send("Done", `say "hi"`))
	assert.Contains(t, script, `"say \"hi\""`)
	assert.Contains(t, script, "sound name")
}

func TestNotificationService_UnknownMethod(t *testing.T) {
	n := NewNotificationService(&domain.NotificationConfig{Enabled: true, Method: "pigeon"}, zap.NewNop())
	n.run = func(name string, args ...string) error {
		t.Fatal("should not run")
		return nil
	}
	assert.NoError(t, n.Send("a", "b"))
}
