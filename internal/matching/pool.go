package matching

import (
	"errors"
	"fmt"
)

// ErrDuplicateCandidate is returned when a candidate ID is already in the pool.
var ErrDuplicateCandidate = errors.New("duplicate candidate")

// Candidate is another user compared against the current one.
type Candidate struct {
	ID             string
	DisplayName    string
	Qualifications string
}

// Pool keeps candidates in insertion order with unique IDs.
type Pool struct {
	items []*Candidate
	index map[string]int
}

func NewPool() *Pool {
	return &Pool{index: make(map[string]int)}
}

// Add appends a candidate. Candidate IDs must be unique within the pool.
func (p *Pool) Add(c Candidate) error {
	if p.index == nil {
		p.index = make(map[string]int)
	}

	if _, ok := p.index[c.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCandidate, c.ID)
	}

	p.index[c.ID] = len(p.items)
	p.items = append(p.items, &c)

	return nil
}

func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.items)
}

func (p *Pool) Get(id string) *Candidate {
	if p == nil {
		return nil
	}
	idx, ok := p.index[id]
	if !ok {
		return nil
	}
	return p.items[idx]
}

// Items returns candidates in insertion order.
func (p *Pool) Items() []*Candidate {
	if p == nil {
		return nil
	}
	return p.items
}
