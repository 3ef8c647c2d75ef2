package logsource

import (
	"regexp"
	"strconv"
	"time"
)

var (
	// honeypotPattern matches lines like:
	// "2023-11-14T22:00:59.123456Z HoneyPotLogon src=1.2.3.4:23 dst=10.0.0.5:2323 proto=TCP"
	honeypotPattern = regexp.MustCompile(
		`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.(\d+))?Z?)\s+\S*HoneyPotLogon\S*\s+src=(\d+\.\d+\.\d+\.\d+):(\d+)\s+dst=(\d+\.\d+\.\d+\.\d+):(\d+)\s+proto=(\w+)`,
	)

	// fortigatePattern matches key=value syslog lines like:
	// `date=2023-11-14 time=22:00:59 devname=FW01 logid=0000013312 type=traffic srcip=1.2.3.4 srcport=23 dstip=10.0.0.5 dstport=2323 proto=6`
	fortigateDate    = regexp.MustCompile(`date=(\d{4}-\d{2}-\d{2})`)
	fortigateTime    = regexp.MustCompile(`time=(\d{2}:\d{2}:\d{2})`)
	fortigateSrcIP   = regexp.MustCompile(`srcip=(\d+\.\d+\.\d+\.\d+)`)
	fortigateDstIP   = regexp.MustCompile(`dstip=(\d+\.\d+\.\d+\.\d+)`)
	fortigateSrcPort = regexp.MustCompile(`srcport=(\d+)`)
	fortigateDstPort = regexp.MustCompile(`dstport=(\d+)`)
	fortigateProto   = regexp.MustCompile(`proto=(\d+)`)
)

// ParseLine extracts an Event from line according to fmt. It returns
// ok=false (never an error) on a failed match, matching spec.md §7's
// ParseWarning semantics: unparseable lines are counted by the caller,
// not treated as fatal.
func ParseLine(line []byte, format Format) (Event, bool) {
	switch format {
	case FormatHoneypot:
		return parseHoneypot(line)
	case FormatFortiGate:
		return parseFortiGate(line)
	default:
		return Event{}, false
	}
}

func parseHoneypot(line []byte) (Event, bool) {
	m := honeypotPattern.FindSubmatch(line)
	if m == nil {
		return Event{}, false
	}
	ts, err := time.Parse(time.RFC3339, string(m[1]))
	if err != nil {
		ts, err = time.Parse("2006-01-02T15:04:05", string(m[1]))
		if err != nil {
			return Event{}, false
		}
	}
	srcIP, ok := parseIPv4(string(m[3]))
	if !ok {
		return Event{}, false
	}
	dstIP, ok := parseIPv4(string(m[5]))
	if !ok {
		return Event{}, false
	}
	srcPort, ok := parsePort(string(m[4]))
	if !ok {
		return Event{}, false
	}
	dstPort, ok := parsePort(string(m[6]))
	if !ok {
		return Event{}, false
	}
	proto, ok := parseProtoName(string(m[7]))
	if !ok {
		return Event{}, false
	}

	var micros int64
	if len(m[2]) > 0 {
		if v, err := strconv.ParseInt(string(m[2]), 10, 64); err == nil {
			micros = v
		}
	}

	return Event{
		TimestampSeconds:      ts.Unix(),
		TimestampMicroseconds: micros,
		SrcIP:                 srcIP,
		DstIP:                 dstIP,
		SrcPort:               srcPort,
		DstPort:               dstPort,
		Protocol:              proto,
	}, true
}

func parseFortiGate(line []byte) (Event, bool) {
	date := fortigateDate.FindSubmatch(line)
	clock := fortigateTime.FindSubmatch(line)
	srcIP := fortigateSrcIP.FindSubmatch(line)
	dstIP := fortigateDstIP.FindSubmatch(line)
	if date == nil || clock == nil || srcIP == nil || dstIP == nil {
		return Event{}, false
	}

	ts, err := time.Parse("2006-01-02 15:04:05", string(date[1])+" "+string(clock[1]))
	if err != nil {
		return Event{}, false
	}

	src, ok := parseIPv4(string(srcIP[1]))
	if !ok {
		return Event{}, false
	}
	dst, ok := parseIPv4(string(dstIP[1]))
	if !ok {
		return Event{}, false
	}

	var srcPort, dstPort uint16
	if m := fortigateSrcPort.FindSubmatch(line); m != nil {
		if p, ok := parsePort(string(m[1])); ok {
			srcPort = p
		}
	}
	if m := fortigateDstPort.FindSubmatch(line); m != nil {
		if p, ok := parsePort(string(m[1])); ok {
			dstPort = p
		}
	}

	var proto uint8 = ProtocolTCP
	if m := fortigateProto.FindSubmatch(line); m != nil {
		if v, err := strconv.ParseUint(string(m[1]), 10, 8); err == nil {
			proto = uint8(v)
		}
	}

	return Event{
		TimestampSeconds: ts.Unix(),
		SrcIP:            src,
		DstIP:            dst,
		SrcPort:          srcPort,
		DstPort:          dstPort,
		Protocol:         proto,
	}, true
}

// parsePort range-checks into [0, 65535] by explicit check, rather than
// the inconsistent accept/reject-port-0 behavior spec.md §9 flags as
// possibly-buggy in the original.
func parsePort(s string) (uint16, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v > 65535 {
		return 0, false
	}
	return uint16(v), true
}

func parseProtoName(s string) (uint8, bool) {
	switch s {
	case "TCP", "tcp":
		return ProtocolTCP, true
	case "UDP", "udp":
		return ProtocolUDP, true
	case "ICMP", "icmp":
		return ProtocolICMP, true
	default:
		return 0, false
	}
}

func parseIPv4(s string) (uint32, bool) {
	var out uint32
	octet, digits, count := 0, 0, 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			if digits == 0 || digits > 3 || octet > 255 || count >= 4 {
				return 0, false
			}
			out = out<<8 | uint32(octet)
			octet, digits = 0, 0
			count++
			continue
		}
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		octet = octet*10 + int(c-'0')
		digits++
	}
	if count != 4 {
		return 0, false
	}
	return out, true
}
