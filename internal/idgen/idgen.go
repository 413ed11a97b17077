// Package idgen produces correlation IDs for command invocations.
// Generators are safe for concurrent use.
package idgen

import (
	"github.com/google/uuid"
)

// Generator returns a fresh identifier for each call.
type Generator interface {
	NewID() string
}

// Func adapts a plain function to Generator.
type Func func() string

func (f Func) NewID() string { return f() }

type timeOrdered struct{}

// New returns a Generator producing UUID v7 strings, so IDs sort by
// creation time in log output. When v7 generation fails the generator
// falls back to a random v4 value instead of returning an error.
func New() Generator { return timeOrdered{} }

func (timeOrdered) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Static returns a Generator that always yields id.
func Static(id string) Generator {
	return Func(func() string { return id })
}
