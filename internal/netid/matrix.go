package netid

import "sync"

// Matrix is the two-level `target -> via -> PingRecord` sample table (C3;
// grounded on NetworkIDManager.java's recordMapsByPeer "map of maps"). It is
// directional: the record for (a, b) — a's reachability as measured through
// via b — is independent of (b, a); see property P1.
//
// Records are created lazily on first access and never removed except by
// Forget, which drops everything keyed on p both as a target and as a via.
type Matrix struct {
	mu   sync.Mutex
	rows map[string]map[string]*PingRecord

	minHTL       int16
	horizon      int
	comfortLevel int
}

// NewMatrix constructs an empty Matrix. minHTL, horizon, and comfortLevel
// are forwarded to every PingRecord it creates.
func NewMatrix(minHTL int16, horizon, comfortLevel int) *Matrix {
	return &Matrix{
		rows:         make(map[string]map[string]*PingRecord),
		minHTL:       minHTL,
		horizon:      horizon,
		comfortLevel: comfortLevel,
	}
}

// Get returns the PingRecord for (target, via), creating it if this is the
// first time the pair has been observed.
func (m *Matrix) Get(target, via string) *PingRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[target]
	if !ok {
		row = make(map[string]*PingRecord)
		m.rows[target] = row
	}
	rec, ok := row[via]
	if !ok {
		rec = NewPingRecord(target, via, m.minHTL, m.horizon, m.comfortLevel)
		row[via] = rec
	}
	return rec
}

// Forget drops every record for which p is the target, and every record for
// which p is the via, across all rows (grounded on forgetPingRecords: the
// caller — the Prober — is responsible for the race-flag interlock that
// defers this call while p is the record currently being probed; Matrix
// itself makes no ordering promise beyond "safe to call any time").
func (m *Matrix) Forget(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rows, p)
	for _, row := range m.rows {
		delete(row, p)
	}
}

// Row returns a snapshot of every via-peer this target has a record for,
// without creating new entries. Used by the reckoner's pingAvg.
func (m *Matrix) Row(target string) map[string]*PingRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[target]
	if !ok {
		return nil
	}
	out := make(map[string]*PingRecord, len(row))
	for via, rec := range row {
		out[via] = rec
	}
	return out
}

// Targets returns a snapshot of every target the matrix currently holds a
// row for.
func (m *Matrix) Targets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.rows))
	for target := range m.rows {
		out = append(out, target)
	}
	return out
}
