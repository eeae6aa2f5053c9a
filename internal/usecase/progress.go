package usecase

import "sync/atomic"

// Progress exposes crawl counters that are safe to read from any
// goroutine. No ordering is implied; the counts only ever grow.
type Progress struct {
	processed atomic.Int64
	accepted  atomic.Int64
}

func (p *Progress) addProcessed() { p.processed.Add(1) }
func (p *Progress) addAccepted()  { p.accepted.Add(1) }

// Counts returns the number of processed and accepted units so far.
func (p *Progress) Counts() (processed, accepted int64) {
	return p.processed.Load(), p.accepted.Load()
}
