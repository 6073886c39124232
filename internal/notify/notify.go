// Package notify defines the user-facing events the engine emits.
package notify

import (
	"log/slog"
)

//go:generate go run go.uber.org/mock/mockgen -source=notify.go -destination=mocks/mock.go -package=mocks
type Notifier interface {
	// ExportCompleted fires once per video added to the library.
	ExportCompleted(title string)

	// ExportFailed fires once per failed export job.
	ExportFailed(title string, err error)

	// PlaybackFinished fires when a session plays past its last slide.
	PlaybackFinished()
}

// LogNotifier renders notifications as log records.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

func (n *LogNotifier) ExportCompleted(title string) {
	n.logger.Info("video export finished", "title", title)
}

func (n *LogNotifier) ExportFailed(title string, err error) {
	n.logger.Error("video export failed", "title", title, "error", err)
}

func (n *LogNotifier) PlaybackFinished() {
	n.logger.Info("playback finished, all slides shown")
}

// Nop discards every notification.
type Nop struct{}

func (Nop) ExportCompleted(string) {}
func (Nop) ExportFailed(string, error) {}
func (Nop) PlaybackFinished() {}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = Nop{}
)
