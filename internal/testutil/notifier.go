package testutil

import "sync"

// RecordingNotifier captures user notices for assertions.
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []string
}

// Notice records msg.
func (n *RecordingNotifier) Notice(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, msg)
}

// Notices returns the recorded messages in order.
func (n *RecordingNotifier) Notices() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.notices...)
}
