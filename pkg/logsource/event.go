// Package logsource turns gzip-compressed honeypot and firewall log
// streams into the event contract spec.md §6 defines for the core
// pipeline. It classifies each line's source format with an
// Aho-Corasick multi-pattern scan before picking the matching regexp
// parser, so a single stream can interleave honeypot and FortiGate
// lines without per-line format flags.
package logsource

// Event is spec.md §6's input event contract verbatim: the fields a
// pkg/pipeline.Process call needs, plus the microsecond component that
// bin assignment ignores but downstream tooling may still want.
type Event struct {
	TimestampSeconds      int64
	TimestampMicroseconds int64
	SrcIP, DstIP          uint32
	SrcPort, DstPort      uint16
	Protocol              uint8
}

// Protocol numbers spec.md §6 enumerates for the Protocol field.
const (
	ProtocolICMP = 1
	ProtocolTCP  = 6
	ProtocolUDP  = 17
)
