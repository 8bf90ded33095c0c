package dashboard

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"time"
)

// Log levels mirror the dashboard activity panel.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

var levelColors = map[string]string{
	LevelInfo:    "#2c3e50",
	LevelSuccess: "#27ae60",
	LevelWarning: "#f39c12",
	LevelError:   "#e74c3c",
}

// LogEntry is one line in the activity panel.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// LogBuffer is a bounded ring of activity entries. Every controller
// operation appends here; the HTTP layer renders it as the log pane.
type LogBuffer struct {
	mu      sync.Mutex
	entries []LogEntry
	max     int
}

// NewLogBuffer creates a ring keeping at most max entries; older entries are
// dropped first.
func NewLogBuffer(max int) *LogBuffer {
	if max < 1 {
		max = 1
	}
	return &LogBuffer{max: max}
}

// Append adds an entry, trimming the oldest beyond capacity. Unknown levels
// fall back to info.
func (b *LogBuffer) Append(level, message string) {
	if _, ok := levelColors[level]; !ok {
		level = LevelInfo
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, LogEntry{Time: time.Now().UTC(), Level: level, Message: message})
	if len(b.entries) > b.max {
		b.entries = b.entries[len(b.entries)-b.max:]
	}
}

// Appendf formats and adds an entry.
func (b *LogBuffer) Appendf(level, format string, args ...any) {
	b.Append(level, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the buffer, oldest first.
func (b *LogBuffer) Entries() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]LogEntry(nil), b.entries...)
}

// HTML renders the panel content, one colored line per entry, newest last.
func (b *LogBuffer) HTML() string {
	var sb strings.Builder
	for _, e := range b.Entries() {
		color := levelColors[e.Level]
		fmt.Fprintf(&sb, `<div style="color: %s; margin-bottom: 5px;"><strong>[%s]</strong> %s</div>`,
			color, e.Time.Format("15:04:05"), html.EscapeString(e.Message))
		sb.WriteString("\n")
	}
	return sb.String()
}
