package logsource

import "testing"

func TestClassifyHoneypot(t *testing.T) {
	line := []byte("2023-11-14T22:00:59.123456Z HoneyPotLogon src=1.2.3.4:23 dst=10.0.0.5:2323 proto=TCP")
	if got := Classify(line); got != FormatHoneypot {
		t.Fatalf("Classify = %v, want FormatHoneypot", got)
	}
}

func TestClassifyFortiGate(t *testing.T) {
	line := []byte("date=2023-11-14 time=22:00:59 devname=FW01 logid=0000013312 type=traffic srcip=1.2.3.4 srcport=23 dstip=10.0.0.5 dstport=2323 proto=6")
	if got := Classify(line); got != FormatFortiGate {
		t.Fatalf("Classify = %v, want FormatFortiGate", got)
	}
}

func TestClassifyUnknown(t *testing.T) {
	if got := Classify([]byte("some unrelated log line")); got != FormatUnknown {
		t.Fatalf("Classify = %v, want FormatUnknown", got)
	}
}

func TestParseHoneypotLine(t *testing.T) {
	line := []byte("2023-11-14T22:00:59.500000Z HoneyPotLogon src=1.2.3.4:23 dst=10.0.0.5:2323 proto=TCP")
	ev, ok := ParseLine(line, FormatHoneypot)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if ev.SrcIP != 0x01020304 {
		t.Fatalf("SrcIP = %#x, want 0x01020304", ev.SrcIP)
	}
	if ev.DstIP != 0x0A000005 {
		t.Fatalf("DstIP = %#x, want 0x0A000005", ev.DstIP)
	}
	if ev.SrcPort != 23 || ev.DstPort != 2323 {
		t.Fatalf("ports = %d/%d, want 23/2323", ev.SrcPort, ev.DstPort)
	}
	if ev.Protocol != ProtocolTCP {
		t.Fatalf("Protocol = %d, want TCP", ev.Protocol)
	}
	if ev.TimestampMicroseconds != 500000 {
		t.Fatalf("TimestampMicroseconds = %d, want 500000", ev.TimestampMicroseconds)
	}
}

func TestParseFortiGateLine(t *testing.T) {
	line := []byte("date=2023-11-14 time=22:00:59 devname=FW01 logid=0000013312 type=traffic srcip=1.2.3.4 srcport=23 dstip=10.0.0.5 dstport=2323 proto=17")
	ev, ok := ParseLine(line, FormatFortiGate)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if ev.Protocol != ProtocolUDP {
		t.Fatalf("Protocol = %d, want UDP", ev.Protocol)
	}
	if ev.SrcPort != 23 {
		t.Fatalf("SrcPort = %d, want 23", ev.SrcPort)
	}
}

func TestParseLineUnknownFormatFails(t *testing.T) {
	if _, ok := ParseLine([]byte("garbage"), FormatUnknown); ok {
		t.Fatal("expected ok=false for FormatUnknown")
	}
}

func TestParseLineMalformedIsWarningNotPanic(t *testing.T) {
	if _, ok := ParseLine([]byte("HoneyPotLogon src=not-an-ip dst=10.0.0.5:1 proto=TCP"), FormatHoneypot); ok {
		t.Fatal("expected ok=false for a malformed honeypot line")
	}
}

func TestParsePortRangeCheck(t *testing.T) {
	if _, ok := parsePort("0"); !ok {
		t.Fatal("port 0 must be accepted, not rejected (spec.md normalizes the source's inconsistent behavior)")
	}
	if _, ok := parsePort("65535"); !ok {
		t.Fatal("port 65535 must be accepted")
	}
	if _, ok := parsePort("65536"); ok {
		t.Fatal("port 65536 must be rejected")
	}
}

func TestParseIPv4Rejects(t *testing.T) {
	for _, bad := range []string{"1.2.3", "1.2.3.4.5", "1.2.3.256", "a.b.c.d", ""} {
		if _, ok := parseIPv4(bad); ok {
			t.Fatalf("parseIPv4(%q) should have failed", bad)
		}
	}
}
