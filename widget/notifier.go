package widget

import (
	"io"
	"log/slog"
)

// TerminalNotifier rings the terminal bell for sounds and logs desktop notifications.
type TerminalNotifier struct {
	w      io.Writer
	logger *slog.Logger
}

func NewTerminalNotifier(w io.Writer, logger *slog.Logger) *TerminalNotifier {
	return &TerminalNotifier{w: w, logger: logger}
}

func (n *TerminalNotifier) PlaySound() {
	io.WriteString(n.w, "\a")
}

func (n *TerminalNotifier) Desktop(title, body string) {
	n.logger.Info(body, slog.String("notification", title))
}
