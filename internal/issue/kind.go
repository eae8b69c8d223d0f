// SPDX-License-Identifier: MPL-2.0

package issue

import "errors"

// Id identifies an error kind and the catalog entry that documents it.
type Id int

const (
	ConfigurationId Id = iota + 1
	EngineUnavailableId
	BuildFailureId
	PullFailureId
	RemoveFailureId
	ExecFailureId
	TimeoutId
	IOId
)

// kindError is the sentinel behind each Err* value. An ActionableError with
// a matching Kind reports errors.Is == true against it.
type kindError struct {
	id   Id
	text string
}

var (
	ErrConfiguration     error = &kindError{id: ConfigurationId, text: "configuration error"}
	ErrEngineUnavailable error = &kindError{id: EngineUnavailableId, text: "container engine unavailable"}
	ErrBuildFailure      error = &kindError{id: BuildFailureId, text: "image build failed"}
	ErrPullFailure       error = &kindError{id: PullFailureId, text: "image pull failed"}
	ErrRemoveFailure     error = &kindError{id: RemoveFailureId, text: "remove failed"}
	ErrExecFailure       error = &kindError{id: ExecFailureId, text: "command execution failed"}
	ErrTimeout           error = &kindError{id: TimeoutId, text: "step timed out"}
	ErrIO                error = &kindError{id: IOId, text: "i/o error"}
)

var sentinels = map[Id]error{
	ConfigurationId:     ErrConfiguration,
	EngineUnavailableId: ErrEngineUnavailable,
	BuildFailureId:      ErrBuildFailure,
	PullFailureId:       ErrPullFailure,
	RemoveFailureId:     ErrRemoveFailure,
	ExecFailureId:       ErrExecFailure,
	TimeoutId:           ErrTimeout,
	IOId:                ErrIO,
}

func (k *kindError) Error() string { return k.text }

// String returns the short human name of the kind.
func (id Id) String() string {
	if s, ok := sentinels[id]; ok {
		return s.Error()
	}
	return "unknown error"
}

// Sentinel returns the errors.Is target for id, or nil for an unknown id.
func (id Id) Sentinel() error {
	return sentinels[id]
}

// KindOf returns the kind of the first ActionableError in err's chain that
// carries one, or 0 when none does.
func KindOf(err error) Id {
	for err != nil {
		var ae *ActionableError
		if !errors.As(err, &ae) {
			return 0
		}
		if ae.Kind != 0 {
			return ae.Kind
		}
		err = ae.Cause
	}
	return 0
}
