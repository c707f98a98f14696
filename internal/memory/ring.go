package memory

import (
	"sync"

	"github.com/rafabd1/Paleta/internal/types"
)

// DefaultQueryMemory is how many answered queries are offered as context to
// the next one.
const DefaultQueryMemory = 5

// Ring keeps the most recent query/answer pairs.
type Ring struct {
	mu    sync.Mutex
	size  int
	items []types.QA
}

func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultQueryMemory
	}
	return &Ring{size: size, items: make([]types.QA, 0, size)}
}

// Add appends qa, evicting the oldest pair when full.
func (r *Ring) Add(qa types.QA) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == r.size {
		copy(r.items, r.items[1:])
		r.items = r.items[:r.size-1]
	}
	r.items = append(r.items, qa)
}

// Recent returns a copy of the retained pairs, oldest first.
func (r *Ring) Recent() []types.QA {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.QA, len(r.items))
	copy(out, r.items)
	return out
}
