package session

import (
	"fmt"
	"io"
	"log/slog"
)

// User-visible notices raised on remote failures.
const (
	NoticeLoadFailed   = "The fact database is not reachable."
	NoticeVoteFailed   = "Can't add vote, retry later."
	NoticeSubmitFailed = "Can't share the fact, retry later."
)

// Notifier surfaces a message to the user.
type Notifier interface {
	Notice(msg string)
}

// LogNotifier writes notices to a logger at Warn level.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notice(msg string) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("notice", "message", msg)
}

// WriterNotifier prints one notice per line.
type WriterNotifier struct {
	W io.Writer
}

func (n WriterNotifier) Notice(msg string) {
	fmt.Fprintf(n.W, "! %s\n", msg)
}
