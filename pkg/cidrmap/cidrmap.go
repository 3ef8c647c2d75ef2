// Package cidrmap implements the longest-prefix CIDR-to-timezone-band
// lookup table consumed by pkg/coordmap. Entries are loaded once from a
// text file, sorted once, and queried through a small direct-mapped cache
// that also records negative lookups.
package cidrmap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// cacheSize is the number of slots in the direct-mapped IP cache, keyed on
// ip&0xFF. It is fixed at the spec's 256.
const cacheSize = 256

// Entry is a single parsed and validated CIDR map line.
type Entry struct {
	Network   uint32
	PrefixLen int
	Mask      uint32
	TZOffset  int
	XStart    uint32
	XEnd      uint32
}

func newEntry(network uint32, prefixLen, tz int, xStart, xEnd uint32) Entry {
	var mask uint32
	if prefixLen > 0 {
		mask = ^uint32(0) << uint(32-prefixLen)
	}
	return Entry{
		Network:   network & mask,
		PrefixLen: prefixLen,
		Mask:      mask,
		TZOffset:  tz,
		XStart:    xStart,
		XEnd:      xEnd,
	}
}

// ParseWarning describes a CIDR map line that was skipped because it could
// not be parsed. It is never fatal (spec.md §7 ParseWarning).
type ParseWarning struct {
	Line   int
	Text   string
	Reason string
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("cidrmap: line %d skipped (%s): %q", w.Line, w.Reason, w.Text)
}

type cacheSlot struct {
	valid bool
	ip    uint32
	entry *Entry // nil means a recorded negative match
}

// Map is an ordered, read-only-after-load CIDR table with a direct-mapped
// lookup cache. The zero value is an empty, always-miss map.
type Map struct {
	entries []Entry
	cache   [cacheSize]cacheSlot
}

// Load parses path per the spec.md §6 text format: lines are
// "NET/PFX TZ XSTART XEND" separated by whitespace; blank lines and lines
// starting with '#' are ignored. Unparseable lines are collected as
// warnings, not treated as fatal. Entries are counted in a first pass,
// allocated once, filled, and sorted once (spec.md §9 Design Notes).
func Load(path string, k int) (*Map, []ParseWarning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cidrmap: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadReader(f, k)
}

// LoadReader is Load without the file-open step, exposed for tests and for
// callers that already have the CIDR map data in memory.
func LoadReader(r io.Reader, k int) (*Map, []ParseWarning, error) {
	n := uint32(1) << uint(k)

	rawLines, err := readLines(r)
	if err != nil {
		return nil, nil, err
	}

	// First pass: count valid lines so we allocate the entries slice once.
	var warnings []ParseWarning
	parsed := make([]Entry, 0, len(rawLines))
	for i, line := range rawLines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		entry, reason := parseLine(trimmed, n)
		if reason != "" {
			warnings = append(warnings, ParseWarning{Line: i + 1, Text: trimmed, Reason: reason})
			continue
		}
		parsed = append(parsed, entry)
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		if parsed[i].PrefixLen != parsed[j].PrefixLen {
			return parsed[i].PrefixLen > parsed[j].PrefixLen
		}
		return parsed[i].Network < parsed[j].Network
	})

	return &Map{entries: parsed}, warnings, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cidrmap: read: %w", err)
	}
	return lines, nil
}

func parseLine(line string, n uint32) (Entry, string) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Entry{}, "expected 4 fields"
	}
	netPart, prefixPart, ok := splitCIDR(fields[0])
	if !ok {
		return Entry{}, "malformed NET/PFX"
	}
	network, ok := parseDottedQuad(netPart)
	if !ok {
		return Entry{}, "malformed dotted quad"
	}
	prefixLen, err := strconv.Atoi(prefixPart)
	if err != nil || prefixLen < 0 || prefixLen > 32 {
		return Entry{}, "prefix length out of [0,32]"
	}
	tz, err := strconv.Atoi(fields[1])
	if err != nil || tz < -12 || tz > 14 {
		return Entry{}, "timezone offset out of [-12,14]"
	}
	xStart, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return Entry{}, "malformed x_start"
	}
	xEnd, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return Entry{}, "malformed x_end"
	}
	if uint32(xStart) >= uint32(xEnd) || uint32(xEnd) > n {
		return Entry{}, "x_start/x_end out of range"
	}
	return newEntry(network, prefixLen, tz, uint32(xStart), uint32(xEnd)), ""
}

func splitCIDR(s string) (net, prefix string, ok bool) {
	idx := strings.IndexByte(s, '/')
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+1:], true
}

func parseDottedQuad(s string) (uint32, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, false
	}
	var out uint32
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return 0, false
		}
		out = out<<8 | uint32(v)
	}
	return out, true
}

// Len reports the number of loaded entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Find returns the longest-prefix entry covering ip, or (nil, false) if no
// entry covers it. Results — including negative results — are cached in
// the 256-slot direct-mapped cache keyed on ip&0xFF.
func (m *Map) Find(ip uint32) (*Entry, bool) {
	if m == nil || len(m.entries) == 0 {
		return nil, false
	}

	slotIdx := ip & 0xFF
	slot := &m.cache[slotIdx]
	if slot.valid && slot.ip == ip {
		return slot.entry, slot.entry != nil
	}

	var found *Entry
	for i := range m.entries {
		e := &m.entries[i]
		if ip&e.Mask == e.Network {
			found = e
			break
		}
	}

	slot.valid = true
	slot.ip = ip
	slot.entry = found
	return found, found != nil
}
