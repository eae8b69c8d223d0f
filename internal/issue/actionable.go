// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is the user-facing error type of confkit. It records
	// what was attempted, on which resource, what kind of failure it was, and
	// what the user can do about it.
	//
	//	err := issue.NewErrorContext().
	//		WithKind(issue.ConfigurationId).
	//		WithOperation("load project").
	//		WithResource("spaces/demo/api.yml").
	//		WithSuggestion("Check the YAML syntax").
	//		Wrap(cause).
	//		BuildError()
	ActionableError struct {
		// Kind classifies the failure; zero means unclassified.
		Kind Id

		// Operation is a verb phrase such as "pull image" or "load project".
		Operation string

		// Resource names the file, image, or container involved (optional).
		Resource string

		// Suggestions are remediation hints shown under the message.
		Suggestions []string

		// Cause is the underlying error (optional).
		Cause error
	}

	// ErrorContext incrementally assembles an ActionableError.
	ErrorContext struct {
		kind        Id
		operation   string
		resource    string
		suggestions []string
		cause       error
	}
)

// New returns an ActionableError of the given kind with a cause built from format.
func New(kind Id, operation, format string, args ...any) *ActionableError {
	return &ActionableError{
		Kind:      kind,
		Operation: operation,
		Cause:     fmt.Errorf(format, args...),
	}
}

// NewErrorContext creates an empty builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WrapWithOperation wraps err with an operation and kind. Returns nil for a nil err.
func WrapWithOperation(err error, kind Id, operation string) error {
	if err == nil {
		return nil
	}
	return &ActionableError{Kind: kind, Operation: operation, Cause: err}
}

// WrapWithContext wraps err with an operation, resource, and kind. Returns nil for a nil err.
func WrapWithContext(err error, kind Id, operation, resource string) error {
	if err == nil {
		return nil
	}
	return &ActionableError{Kind: kind, Operation: operation, Resource: resource, Cause: err}
}

// Error implements the error interface.
func (e *ActionableError) Error() string {
	var msg strings.Builder

	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)

	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}

	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}

	return msg.String()
}

// Unwrap returns the cause.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel of this error's kind.
func (e *ActionableError) Is(target error) bool {
	k, ok := target.(*kindError)
	return ok && e.Kind != 0 && k.id == e.Kind
}

// Format renders the error for a terminal. Suggestions are bulleted under
// the message; verbose mode appends the numbered cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder

	msg.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n")
		for _, suggestion := range e.Suggestions {
			msg.WriteString("\n  • ")
			msg.WriteString(suggestion)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		err := e.Cause
		for depth := 1; err != nil; depth++ {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
			err = errors.Unwrap(err)
		}
	}

	return msg.String()
}

// HasSuggestions reports whether any remediation hints are attached.
func (e *ActionableError) HasSuggestions() bool {
	return len(e.Suggestions) > 0
}

// WithKind sets the error kind.
func (c *ErrorContext) WithKind(kind Id) *ErrorContext {
	c.kind = kind
	return c
}

// WithOperation sets the operation being performed.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.operation = op
	return c
}

// WithResource sets the resource involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.resource = res
	return c
}

// WithSuggestion appends one remediation hint.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.suggestions = append(c.suggestions, sug)
	return c
}

// WithSuggestions appends several remediation hints.
func (c *ErrorContext) WithSuggestions(sugs ...string) *ErrorContext {
	c.suggestions = append(c.suggestions, sugs...)
	return c
}

// Wrap sets the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.cause = err
	return c
}

// Build returns the assembled error, or nil when no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.operation == "" {
		return nil
	}

	return &ActionableError{
		Kind:        c.kind,
		Operation:   c.operation,
		Resource:    c.resource,
		Suggestions: c.suggestions,
		Cause:       c.cause,
	}
}

// BuildError is Build typed as error, so a nil result stays a nil interface.
func (c *ErrorContext) BuildError() error {
	ae := c.Build()
	if ae == nil {
		return nil
	}
	return ae
}
