package feedback

import "log/slog"

// Console is a Sink for development and tests: it logs what the hardware
// sink would display instead of touching any bus.
type Console struct {
	logger *slog.Logger
}

func NewConsole(logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{logger: logger}
}

func (c *Console) Show(e Event) {
	line1, line2 := Lines(e)
	c.logger.Info("feedback", "event", e.String(), "line1", line1, "line2", line2)
}

func (c *Console) ShowMatched(displayName string) {
	line1, line2 := MatchedLines(displayName)
	c.logger.Info("feedback", "event", "matched", "line1", line1, "line2", line2)
}

func (c *Console) Close() error {
	c.Show(EventShutdown)
	return nil
}
