// Command cidrmap-gen builds the CIDR-to-timezone map file curvewatch's
// core optionally reads at startup (spec.md §6). It is a standalone,
// offline tool: it is not run per-visualization, and none of its network
// or disk-trie dependencies are linked into the core pipeline.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/biter777/countries"
	"github.com/oschwald/maxminddb-golang"

	"github.com/greywire/curvewatch/pkg/genutil"
	"github.com/greywire/curvewatch/pkg/gensources"
)

var (
	outputFlag     = flag.String("output", "cidrmap.txt", "Output CIDR map path.")
	triePathFlag   = flag.String("trie-path", "cidrmap-gen-trie", "Badger data directory for the dedup trie (removed on exit).")
	orderFlag      = flag.Int("hilbert-order", 12, "Hilbert curve order the generated map targets, 4..16.")
	geoipDBFlag    = flag.String("geoip-db", "", "Optional path to a GeoLite2-Country.mmdb, consulted for entries RIR stats leave uncertain.")
)

// countryTZ is the static country-code -> UTC-offset table used to band
// CIDR blocks by timezone; it covers every ISO-3166 alpha-2 code this
// tool is likely to see in RIR delegated-stats feeds. Offsets are the
// country's most populous/representative zone, not a precise per-region
// lookup — spec.md §4.B treats this as advisory banding, not a routing
// decision.
var countryTZ = map[string]int{
	"US": -5, "CA": -5, "MX": -6, "BR": -3, "AR": -3, "CL": -4,
	"GB": 0, "IE": 0, "PT": 0, "IS": 0,
	"FR": 1, "DE": 1, "ES": 1, "IT": 1, "NL": 1, "BE": 1, "CH": 1, "PL": 1, "SE": 1, "NO": 1, "DK": 1, "AT": 1,
	"FI": 2, "GR": 2, "RO": 2, "UA": 2, "ZA": 2, "EG": 2, "IL": 2,
	"RU": 3, "SA": 3, "TR": 3, "KE": 3,
	"AE": 4, "PK": 5, "IN": 5, "BD": 6, "TH": 7, "VN": 7, "ID": 7,
	"CN": 8, "SG": 8, "HK": 8, "TW": 8, "AU": 8, "PH": 8, "MY": 8,
	"JP": 9, "KR": 9, "NZ": 12,
}

func main() {
	flag.Parse()

	trie, err := genutil.OpenPrefixTrie(*triePathFlag)
	if err != nil {
		log.Fatalf("open dedup trie: %v", err)
	}
	defer func() {
		trie.Close()
		os.RemoveAll(*triePathFlag)
	}()

	var geoReader *maxminddb.Reader
	if *geoipDBFlag != "" {
		geoReader, err = maxminddb.Open(*geoipDBFlag)
		if err != nil {
			log.Fatalf("open geoip db: %v", err)
		}
		defer geoReader.Close()
	}

	for name := range gensources.RIRURLs {
		if err := ingestRIR(trie, name); err != nil {
			log.Printf("warning: %s: %v", name, err)
		}
	}

	records, err := collectRecords(trie, geoReader)
	if err != nil {
		log.Fatalf("collect records: %v", err)
	}
	assignBands(records, *orderFlag)

	if err := writeCIDRMap(*outputFlag, records); err != nil {
		log.Fatalf("write cidr map: %v", err)
	}
	log.Printf("wrote %d entries to %s", len(records), *outputFlag)
}

type record struct {
	network   *net.IPNet
	country   string
	tz        int
	xs, xe    uint32
}

// ingestRIR streams one RIR's delegated-stats feed and inserts every
// ipv4 allocation/assignment line into trie, keyed by the resulting
// CIDR and valued with the allocation's country code.
func ingestRIR(trie *genutil.PrefixTrie, name string) error {
	rc, err := gensources.GetRIRReader(name)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	count := 0
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "2") {
			continue // version line or comment
		}
		fields := strings.Split(line, "|")
		if len(fields) < 7 || fields[2] != "ipv4" {
			continue
		}
		cc := strings.ToUpper(fields[1])
		startIP := net.ParseIP(fields[3])
		size, err := strconv.ParseUint(fields[4], 10, 32)
		if startIP == nil || err != nil || size == 0 {
			continue
		}
		ipNet := blockToCIDR(startIP, uint32(size))
		if ipNet == nil {
			continue
		}
		if err := trie.Insert(ipNet, []byte(cc)); err != nil {
			return fmt.Errorf("insert %s: %w", ipNet, err)
		}
		count++
	}
	log.Printf("[%s] ingested %d ipv4 allocations", name, count)
	return scanner.Err()
}

// blockToCIDR converts a (start IP, host count) RIR allocation record
// into the tightest covering CIDR block. RIR feeds always size blocks as
// powers of two, so this is exact, not an approximation.
func blockToCIDR(start net.IP, size uint32) *net.IPNet {
	ip4 := start.To4()
	if ip4 == nil {
		return nil
	}
	prefixLen := 32
	for (uint32(1) << uint(32-prefixLen)) < size {
		prefixLen--
	}
	mask := net.CIDRMask(prefixLen, 32)
	return &net.IPNet{IP: ip4.Mask(mask), Mask: mask}
}

func collectRecords(trie *genutil.PrefixTrie, geo *maxminddb.Reader) ([]*record, error) {
	var out []*record
	err := trie.ForEach(func(key, value []byte) error {
		if len(key) != 5 {
			return nil
		}
		ip := net.IPv4(key[0], key[1], key[2], key[3])
		prefixLen := int(key[4])
		mask := net.CIDRMask(prefixLen, 32)
		ipNet := &net.IPNet{IP: ip.Mask(mask), Mask: mask}

		cc := string(value)
		if geo != nil && !validCountry(cc) {
			if resolved, ok := lookupCountry(geo, ipNet.IP); ok {
				cc = resolved
			}
		}
		tz, ok := countryTZ[cc]
		if !ok {
			tz = 0 // unknown country bands into the UTC+0 slice
		}
		out = append(out, &record{network: ipNet, country: cc, tz: tz})
		return nil
	})
	return out, err
}

func validCountry(cc string) bool {
	if len(cc) != 2 {
		return false
	}
	return countries.ByName(cc) != countries.Unknown
}

func lookupCountry(geo *maxminddb.Reader, ip net.IP) (string, bool) {
	var record struct {
		Country struct {
			ISOCode string `maxminddb:"iso_code"`
		} `maxminddb:"country"`
	}
	if err := geo.Lookup(ip, &record); err != nil || record.Country.ISOCode == "" {
		return "", false
	}
	return record.Country.ISOCode, true
}

// assignBands partitions the order-k curve's X axis into 27 equal-width
// slices, one per UTC offset in [-12,+14], and stamps each record's
// (xs, xe) with its band's slice. This is advisory geographic banding
// for Case 1 of spec.md §4.C, not a precise routing table.
func assignBands(records []*record, order int) {
	n := uint32(1) << uint(order)
	const bandCount = 27 // -12..+14 inclusive
	bandWidth := n / bandCount
	if bandWidth == 0 {
		bandWidth = 1
	}
	for _, r := range records {
		band := uint32(r.tz + 12)
		xs := band * bandWidth
		xe := xs + bandWidth
		if band == bandCount-1 || xe > n {
			xe = n
		}
		if xs >= xe {
			xs = xe - 1
		}
		r.xs, r.xe = xs, xe
	}
}

func writeCIDRMap(path string, records []*record) error {
	sort.Slice(records, func(i, j int) bool {
		a := records[i].network.IP.To4()
		b := records[j].network.IP.To4()
		return string(a) < string(b)
	})

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	writeAdvisoryHeader(w, records)
	for _, r := range records {
		ones, _ := r.network.Mask.Size()
		fmt.Fprintf(w, "%s/%d %d %d %d\n", r.network.IP.String(), ones, r.tz, r.xs, r.xe)
	}
	return w.Flush()
}

// writeAdvisoryHeader emits a leading "# "-prefixed block describing the
// timezone band layout, per spec.md §6's "advisory" header convention.
// Country names come from biter777/countries purely for the comment's
// readability; the map format itself only ever stores ISO offsets.
func writeAdvisoryHeader(w *bufio.Writer, records []*record) {
	seen := map[int]string{}
	for _, r := range records {
		if _, ok := seen[r.tz]; !ok {
			name := r.country
			if c := countries.ByName(r.country); c != countries.Unknown {
				name = c.String()
			}
			seen[r.tz] = name
		}
	}
	offsets := make([]int, 0, len(seen))
	for tz := range seen {
		offsets = append(offsets, tz)
	}
	sort.Ints(offsets)

	fmt.Fprintln(w, "# curvewatch CIDR map: timezone bands (advisory)")
	for _, tz := range offsets {
		fmt.Fprintf(w, "# UTC%+d: e.g. %s\n", tz, seen[tz])
	}
}
