package logsource

import "github.com/cloudflare/ahocorasick"

// Format identifies which log dialect a line came from.
type Format int

const (
	FormatUnknown Format = iota
	FormatHoneypot
	FormatFortiGate
)

// honeypotSignatures and fortigateSignatures are substrings each format's
// lines reliably carry: the honeypot's session-tag banner and FortiGate's
// key=value syslog fields. A single Aho-Corasick matcher over both sets
// lets Classify scan a line once instead of running two regexps against
// every line before even knowing which parser applies.
var (
	honeypotSignatures  = []string{"HoneyPotLogon", "cowrie.session", "honeypot_event"}
	fortigateSignatures = []string{"devname=", "logid=", "type=traffic", "srcip="}

	classifierDict    = append(append([]string{}, honeypotSignatures...), fortigateSignatures...)
	classifierMatcher = ahocorasick.NewStringMatcher(classifierDict)
)

// Classify scans line for either format's signature substrings and
// returns whichever format matched more signatures, or FormatUnknown if
// neither did.
func Classify(line []byte) Format {
	hits := classifierMatcher.Match(line)
	if len(hits) == 0 {
		return FormatUnknown
	}

	honeypotCount, fortigateCount := 0, 0
	for _, idx := range hits {
		if idx < len(honeypotSignatures) {
			honeypotCount++
		} else {
			fortigateCount++
		}
	}
	switch {
	case honeypotCount > fortigateCount:
		return FormatHoneypot
	case fortigateCount > honeypotCount:
		return FormatFortiGate
	default:
		return FormatUnknown
	}
}
