package market

// OfferIndexEntry tracks the pending offer ids targeting one asset+token. The
// ids slice preserves insertion order; the position map gives O(1) removal by
// swapping the removed id with the last element. The map is rebuilt on load
// so only the slice needs to be persisted.
type OfferIndexEntry struct {
	IDs []uint64 `json:"ids"`

	pos map[uint64]int
}

// NewOfferIndexEntry returns an empty index entry.
func NewOfferIndexEntry() *OfferIndexEntry {
	return &OfferIndexEntry{pos: make(map[uint64]int)}
}

func (e *OfferIndexEntry) ensurePositions() {
	if e.pos != nil {
		return
	}
	e.pos = make(map[uint64]int, len(e.IDs))
	for i, id := range e.IDs {
		e.pos[id] = i
	}
}

// Add appends the id to the entry. Adding an id already present is a no-op.
func (e *OfferIndexEntry) Add(id uint64) {
	e.ensurePositions()
	if _, ok := e.pos[id]; ok {
		return
	}
	e.pos[id] = len(e.IDs)
	e.IDs = append(e.IDs, id)
}

// Remove deletes the id via swap-with-last. It reports whether the id was
// present.
func (e *OfferIndexEntry) Remove(id uint64) bool {
	e.ensurePositions()
	idx, ok := e.pos[id]
	if !ok {
		return false
	}
	last := len(e.IDs) - 1
	if idx != last {
		moved := e.IDs[last]
		e.IDs[idx] = moved
		e.pos[moved] = idx
	}
	e.IDs = e.IDs[:last]
	delete(e.pos, id)
	return true
}

// Contains reports whether the id is tracked by the entry.
func (e *OfferIndexEntry) Contains(id uint64) bool {
	e.ensurePositions()
	_, ok := e.pos[id]
	return ok
}

// Len returns the number of tracked ids.
func (e *OfferIndexEntry) Len() int { return len(e.IDs) }

// Snapshot returns a copy of the tracked ids in insertion order. Cascade
// cancellation iterates the snapshot in reverse so removals during the walk
// cannot skip entries.
func (e *OfferIndexEntry) Snapshot() []uint64 {
	return append([]uint64(nil), e.IDs...)
}

// Clone returns a deep copy of the entry.
func (e *OfferIndexEntry) Clone() *OfferIndexEntry {
	if e == nil {
		return NewOfferIndexEntry()
	}
	clone := NewOfferIndexEntry()
	clone.IDs = append([]uint64(nil), e.IDs...)
	for i, id := range clone.IDs {
		clone.pos[id] = i
	}
	return clone
}
