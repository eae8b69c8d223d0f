// SPDX-License-Identifier: MPL-2.0

package eventhub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const logLineTimeFormat = "2006-01-02 15:04:05"

// ErrNoLogPath is returned when a Log event has no log_path and the
// subscriber has no default path.
var ErrNoLogPath = errors.New("no log path for event")

type (
	// LogSubscriber appends Log events to files, one line per event:
	//
	//	[2024-05-01 12:00:00][INFO] message
	//
	// The target file comes from the event's log_path metadata, falling back
	// to the subscriber's default path. Files stay open until Close; each
	// line is written straight to the file without buffering.
	LogSubscriber struct {
		defaultPath string
		mirror      *slog.Logger

		mu    sync.Mutex
		files map[string]*os.File
	}

	// LogSubscriberOption configures a LogSubscriber.
	LogSubscriberOption func(*LogSubscriber)
)

// WithMirror also emits every handled line to logger at the event's level.
func WithMirror(logger *slog.Logger) LogSubscriberOption {
	return func(s *LogSubscriber) {
		s.mirror = logger
	}
}

// NewLogSubscriber creates a file sink. defaultPath may be empty, in which
// case events without log_path fail.
func NewLogSubscriber(defaultPath string, opts ...LogSubscriberOption) *LogSubscriber {
	s := &LogSubscriber{defaultPath: defaultPath, files: make(map[string]*os.File)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LogSubscriber) Name() string { return "log-file" }

func (s *LogSubscriber) Interested(e Event) bool {
	return e.Type.Kind == KindLog
}

func (s *LogSubscriber) Handle(ctx context.Context, e Event) error {
	path := e.LogPath()
	if path == "" {
		path = s.defaultPath
	}
	if path == "" {
		return ErrNoLogPath
	}

	if s.mirror != nil {
		s.mirror.Log(ctx, e.Type.Level.SlogLevel(), e.Payload, "source", e.Source)
	}

	line := fmt.Sprintf("[%s][%s] %s\n", e.Timestamp.Format(logLineTimeFormat), e.Type.Level, e.Payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.open(path)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log file: %w", err)
	}
	return nil
}

// Close closes every open log file.
func (s *LogSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for path, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log file %s: %w", path, err))
		}
		delete(s.files, path)
	}
	return errors.Join(errs...)
}

// open returns the handle for path, creating the file and its parent
// directories on first use. Callers hold s.mu.
func (s *LogSubscriber) open(path string) (*os.File, error) {
	if f, ok := s.files[path]; ok {
		return f, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	s.files[path] = f
	return f, nil
}
