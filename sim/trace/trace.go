package trace

// Trace collects state-change records during a run. Records are append-only
// and monotonically non-decreasing in tick, so a consumer can restart from
// any position.
type Trace struct {
	records []Record
}

// New creates an empty Trace ready for recording.
func New() *Trace {
	return &Trace{records: make([]Record, 0)}
}

// Append adds one record.
func (t *Trace) Append(r Record) {
	t.records = append(t.records, r)
}

// Len returns the number of records collected so far.
func (t *Trace) Len() int {
	return len(t.records)
}

// Records returns the collected records. The returned slice is the trace's
// internal storage; callers must treat it as read-only.
func (t *Trace) Records() []Record {
	return t.records
}

// Cursor is a restartable reader over a Trace. It observes records appended
// after its creation, which makes an open-ended run's stream infinite but
// monotonic.
type Cursor struct {
	t   *Trace
	pos int
}

// NewCursor returns a cursor positioned at the given record index.
// Index 0 restarts the sequence from the beginning.
func (t *Trace) NewCursor(from int) *Cursor {
	if from < 0 {
		from = 0
	}
	return &Cursor{t: t, pos: from}
}

// Next returns the next record, or ok=false when the cursor has caught up.
func (c *Cursor) Next() (Record, bool) {
	if c.pos >= len(c.t.records) {
		return Record{}, false
	}
	r := c.t.records[c.pos]
	c.pos++
	return r, true
}

// Pos returns the cursor's position, usable to restart a new cursor later.
func (c *Cursor) Pos() int {
	return c.pos
}
