package interaction

import "sync"

// Observer is called with each record after it has been appended.
type Observer func(Record)

// MemoryLog is an in-memory, thread-safe Log. Observers see records in the
// same order as List.
type MemoryLog struct {
	notifyMu  sync.Mutex // held across append and notify
	mu        sync.RWMutex
	records   []Record
	observers []Observer
}

// NewMemoryLog returns an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Subscribe registers fn to be called after every Append. Observers run
// synchronously on the appending goroutine, one record at a time. They must
// not block or call Append.
func (l *MemoryLog) Subscribe(fn Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

// Append implements Log. The record is copied; later changes to r or its
// Triggers slice are not visible in the log.
func (l *MemoryLog) Append(r *Record) error {
	if r == nil {
		return ErrNilRecord
	}

	rec := *r
	rec.Triggers = append([]string{}, r.Triggers...)

	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()

	l.mu.Lock()
	l.records = append(l.records, rec)
	observers := l.observers
	l.mu.Unlock()

	for _, fn := range observers {
		fn(rec)
	}
	return nil
}

// List implements Log.
func (l *MemoryLog) List() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len implements Log.
func (l *MemoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
