// SPDX-License-Identifier: MPL-2.0

package eventhub

import "fmt"

// TaskLogger publishes Log events bound to one task's log file.
type TaskLogger struct {
	Publisher Publisher
	Source    string
	LogPath   string
}

// Log publishes message at level. A nil Publisher discards it.
func (l TaskLogger) Log(level Level, message string) {
	if l.Publisher == nil {
		return
	}
	e := NewLogEvent(level, l.Source, message)
	if l.LogPath != "" {
		e = e.WithLogPath(l.LogPath)
	}
	l.Publisher.Publish(e)
}

func (l TaskLogger) Debugf(format string, args ...any) { l.Log(LevelDebug, fmt.Sprintf(format, args...)) }

func (l TaskLogger) Infof(format string, args ...any) { l.Log(LevelInfo, fmt.Sprintf(format, args...)) }

func (l TaskLogger) Warnf(format string, args ...any) { l.Log(LevelWarn, fmt.Sprintf(format, args...)) }

func (l TaskLogger) Errorf(format string, args ...any) { l.Log(LevelError, fmt.Sprintf(format, args...)) }

// Status publishes a TaskStatus event carrying status as payload.
func (l TaskLogger) Status(status string) {
	if l.Publisher == nil {
		return
	}
	e := NewEvent(TaskStatusType, l.Source, status)
	if l.LogPath != "" {
		e = e.WithLogPath(l.LogPath)
	}
	l.Publisher.Publish(e)
}
