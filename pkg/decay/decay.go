// Package decay implements the per-coordinate recency cache (spec.md §4.E)
// that fades recent-but-currently-quiet sources back into a finalized bin,
// and the cumulative residue map that remembers where activity ever
// occurred during a run.
package decay

// MaxEntries bounds the decay cache the way spec.md's DECAY_MAX does.
// Once full, further inserts are dropped until the next compaction frees
// space.
const MaxEntries = 65536

// CompactEvery is the default bin-count interval at which the cache is
// compacted, per spec.md §4.E ("every 10 completed bins by default").
const CompactEvery = 10

// CoordKey packs (x, y) the way spec.md's DecayEntry does: (x<<16)|y.
func CoordKey(x, y uint32) uint32 {
	return x<<16 | y
}

// entry mirrors spec.md's DecayEntry: a single coord's last-seen time and
// its accumulated intensity.
type entry struct {
	lastSeen    int64
	accumulated uint64
}

// Cache is the decay store. Its observable semantics — update-last-wins on
// re-insert, linear fade with a minimum-visibility floor on overlay, full-at-
// capacity drop behavior — are exactly spec.md §4.E's. Internally it uses a
// map keyed on coord_key rather than a literal linear-scan slice: spec.md
// §9 explicitly permits this substitution as long as semantics match, and
// the teacher's own BGPProcessor.recentlySeen uses the same shape for the
// same kind of recency bookkeeping.
type Cache struct {
	entries             map[uint32]*entry
	binsSinceCompaction int
}

// NewCache returns an empty decay cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[uint32]*entry)}
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Update records an event at (x, y) at time t with the given intensity
// (spec.md step: "Update decay cache with (x, y, t, intensity=1)"). If the
// coord already has an entry, last_seen is refreshed and intensity is
// added; otherwise a new entry is appended unless the cache is at
// MaxEntries, in which case the insert is silently dropped.
func (c *Cache) Update(x, y uint32, t int64, intensity uint64) {
	key := CoordKey(x, y)
	if e, ok := c.entries[key]; ok {
		e.lastSeen = t
		e.accumulated += intensity
		return
	}
	if len(c.entries) >= MaxEntries {
		return
	}
	c.entries[key] = &entry{lastSeen: t, accumulated: intensity}
}

// Compact removes entries older than decaySeconds or with a negative age
// (a future last_seen, i.e. clock skew/out-of-order input), evaluated
// against "now".
func (c *Cache) Compact(now int64, decaySeconds int64) {
	for key, e := range c.entries {
		age := now - e.lastSeen
		if age < 0 || age > decaySeconds {
			delete(c.entries, key)
		}
	}
	c.binsSinceCompaction = 0
}

// MaybeCompact increments the completed-bin counter and compacts once it
// reaches every (CompactEvery by default).
func (c *Cache) MaybeCompact(now int64, decaySeconds int64, every int) {
	c.binsSinceCompaction++
	if c.binsSinceCompaction >= every {
		c.Compact(now, decaySeconds)
	}
}

// Contribution is the result of overlaying a single decay entry onto a bin:
// the coordinate and the intensity it contributes.
type Contribution struct {
	X, Y  uint32
	Value uint64
}

// Overlay computes, for every live entry whose age relative to binStart
// ("now" for overlay purposes, per spec.md §9's documented asymmetry with
// residue marking) falls in [0, decaySeconds], the linear-fade
// contribution: f = 1 - age/decaySeconds, v = floor(accumulated*f), with a
// hard minimum-visibility floor of 1 for any non-expired entry whose
// computed v would otherwise be 0. Entries with age outside that window
// contribute nothing.
func (c *Cache) Overlay(binStart int64, decaySeconds int64) []Contribution {
	if decaySeconds <= 0 {
		return nil
	}
	contributions := make([]Contribution, 0, len(c.entries))
	for key, e := range c.entries {
		age := binStart - e.lastSeen
		if age < 0 || age > decaySeconds {
			continue
		}
		f := 1.0 - float64(age)/float64(decaySeconds)
		v := uint64(float64(e.accumulated) * f)
		if v == 0 && f > 0 {
			v = 1
		}
		x, y := unpackCoordKey(key)
		contributions = append(contributions, Contribution{X: x, Y: y, Value: v})
	}
	return contributions
}

func unpackCoordKey(key uint32) (x, y uint32) {
	return key >> 16, key & 0xFFFF
}
