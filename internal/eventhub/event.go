// SPDX-License-Identifier: MPL-2.0

package eventhub

import (
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
)

// MetadataLogPath is the metadata key naming the file a Log event belongs in.
const MetadataLogPath = "log_path"

const (
	KindLog Kind = iota
	KindTaskStatus
	KindSystemMetrics
	KindCustom
)

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

type (
	// Kind is the coarse category of an event.
	Kind int

	// Level is the severity of a Log event.
	Level int

	// EventType is a Kind refined by a Level (for KindLog) or a Name (for KindCustom).
	EventType struct {
		Kind  Kind
		Level Level
		Name  string
	}

	// Event is a single message on the hub. Events are values; use the With*
	// methods to derive modified copies.
	Event struct {
		ID        string
		Type      EventType
		Payload   string
		Timestamp time.Time
		Source    string
		Metadata  map[string]string
	}
)

var (
	TaskStatusType    = EventType{Kind: KindTaskStatus}
	SystemMetricsType = EventType{Kind: KindSystemMetrics}
)

// LogType returns the event type for a log line at level.
func LogType(level Level) EventType {
	return EventType{Kind: KindLog, Level: level}
}

// CustomType returns a named custom event type.
func CustomType(name string) EventType {
	return EventType{Kind: KindCustom, Name: name}
}

// NewEvent stamps a fresh id and the current time onto a new event.
func NewEvent(typ EventType, source, payload string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now(),
		Source:    source,
		Metadata:  map[string]string{},
	}
}

// NewLogEvent is NewEvent for a log line.
func NewLogEvent(level Level, source, message string) Event {
	return NewEvent(LogType(level), source, message)
}

// WithMetadata returns a copy of e with key set to value.
func (e Event) WithMetadata(key, value string) Event {
	md := make(map[string]string, len(e.Metadata)+1)
	maps.Copy(md, e.Metadata)
	md[key] = value
	e.Metadata = md
	return e
}

// WithLogPath is WithMetadata(MetadataLogPath, path).
func (e Event) WithLogPath(path string) Event {
	return e.WithMetadata(MetadataLogPath, path)
}

// LogPath returns the log_path metadata value, if any.
func (e Event) LogPath() string {
	return e.Metadata[MetadataLogPath]
}

func (k Kind) String() string {
	switch k {
	case KindLog:
		return "log"
	case KindTaskStatus:
		return "task_status"
	case KindSystemMetrics:
		return "system_metrics"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SlogLevel maps l onto the slog scale. Trace sits below slog.LevelDebug.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case LevelTrace:
		return slog.LevelDebug - 4
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (t EventType) String() string {
	switch t.Kind {
	case KindLog:
		return "log(" + t.Level.String() + ")"
	case KindCustom:
		return "custom(" + t.Name + ")"
	default:
		return t.Kind.String()
	}
}
