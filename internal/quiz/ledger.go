package quiz

// SkipSentinel is the reserved answer value meaning "explicitly skipped",
// as opposed to "not yet answered" (no entry at all).
const SkipSentinel = 0

// Ledger maps zero-based question positions to recorded answers. A value of
// SkipSentinel marks an explicit skip; selected options are 1-based. Entries
// may be overwritten while the position is still reachable but are never
// implicitly removed.
//
// A Ledger is not safe for concurrent use; the owning session serializes
// access.
type Ledger struct {
	entries map[int]int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[int]int)}
}

// Record stores answer for position, overwriting any previous value.
func (l *Ledger) Record(position, answer int) {
	l.entries[position] = answer
}

// Get returns the recorded answer for position and whether one exists.
func (l *Ledger) Get(position int) (int, bool) {
	v, ok := l.entries[position]
	return v, ok
}

// Answered reports whether position holds any entry, including a skip.
func (l *Ledger) Answered(position int) bool {
	_, ok := l.entries[position]
	return ok
}

// Counts returns how many positions hold a real selection and how many hold
// an explicit skip.
func (l *Ledger) Counts() (selected, skipped int) {
	for _, v := range l.entries {
		if v == SkipSentinel {
			skipped++
		} else {
			selected++
		}
	}
	return selected, skipped
}

// Sweep resolves every position 0..n-1 to its recorded answer, defaulting
// unanswered positions to SkipSentinel. Used for the final-sweep submission
// mode, where blanks are treated as skipped at scoring time.
func (l *Ledger) Sweep(n int) []int {
	out := make([]int, n)
	for i := 0; i < n; i++ {
		if v, ok := l.entries[i]; ok {
			out[i] = v
		} else {
			out[i] = SkipSentinel
		}
	}
	return out
}

// Export returns a copy of the raw entries for snapshots.
func (l *Ledger) Export() map[int]int {
	out := make(map[int]int, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out
}
