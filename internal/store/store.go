// Package store holds the state shared between the agent and the polling
// front-ends. Each slot is guarded on its own so a result write never
// blocks a palette poll.
package store

import "github.com/rafabd1/Paleta/internal/types"

// Store is owned by the daemon and passed explicitly to its users.
type Store struct {
	Results        Slot[types.Result]
	Clarifications Slot[types.Clarification]

	// Palette wakes a dormant palette front-end.
	Palette Flag
	// Close asks a visible front-end to hide.
	Close Flag
}

func New() *Store {
	return &Store{}
}
