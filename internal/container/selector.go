// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrNoEngineSelected is returned by Selector.Engine before Select succeeds.
	ErrNoEngineSelected = errors.New("no container engine selected")
	// ErrEngineAlreadySelected is returned when Select asks for a different
	// engine after one was chosen.
	ErrEngineAlreadySelected = errors.New("a different container engine is already selected")
)

type (
	// EngineFactory constructs an engine of the given type.
	EngineFactory func(typ EngineType) (Engine, error)

	// Selector holds the single engine used by a process. It is written once
	// by Select and read by any number of goroutines afterwards.
	Selector struct {
		factory EngineFactory

		mu     sync.RWMutex
		engine Engine
	}
)

// NewSelector returns an empty selector whose engines are built with opts.
func NewSelector(opts ...BaseCLIEngineOption) *Selector {
	return &Selector{
		factory: func(typ EngineType) (Engine, error) {
			return NewEngine(typ, opts...)
		},
	}
}

// NewSelectorWithFactory returns an empty selector that builds engines with factory.
func NewSelectorWithFactory(factory EngineFactory) *Selector {
	return &Selector{factory: factory}
}

// Preselected returns a selector already holding engine.
func Preselected(engine Engine) *Selector {
	return &Selector{engine: engine}
}

// Select verifies the engine of type typ is reachable and makes it the
// process engine. Selecting the same type again returns the existing engine.
func (s *Selector) Select(ctx context.Context, typ EngineType) (Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine != nil {
		if s.engine.Name() == string(typ) {
			return s.engine, nil
		}
		return nil, fmt.Errorf("select %s: %w (%s)", typ, ErrEngineAlreadySelected, s.engine.Name())
	}
	if s.factory == nil {
		return nil, ErrNoEngineSelected
	}

	engine, err := s.factory(typ)
	if err != nil {
		return nil, err
	}
	if err := engine.Available(ctx); err != nil {
		return nil, err
	}
	slog.Debug("container engine selected", "engine", engine.Name())
	s.engine = engine
	return engine, nil
}

// Engine returns the selected engine.
func (s *Selector) Engine() (Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.engine == nil {
		return nil, ErrNoEngineSelected
	}
	return s.engine, nil
}
