// Package gensources lists the regional internet registries' delegated
// allocation feeds cmd/cidrmap-gen reads to build a CIDR map file.
package gensources

import (
	"fmt"
	"io"

	"github.com/greywire/curvewatch/pkg/genutil"
)

// Delegated-stats URLs for the five RIRs, in the format described at
// https://www.apnic.net/about-apnic/corporate-documents/documents/resource-guidelines/rir-statistics-exchange-format/
const (
	apnicDelegatedURL   = "https://ftp.apnic.net/stats/apnic/delegated-apnic-latest"
	ripeDelegatedURL    = "https://ftp.ripe.net/pub/stats/ripencc/delegated-ripencc-latest"
	afrinicDelegatedURL = "https://ftp.afrinic.net/pub/stats/afrinic/delegated-afrinic-latest"
	lacnicDelegatedURL  = "https://ftp.lacnic.net/pub/stats/lacnic/delegated-lacnic-latest"
	arinDelegatedURL    = "https://ftp.arin.net/pub/stats/arin/delegated-arin-extended-latest"
)

// RIRURLs maps each registry's short name to its delegated-stats feed.
var RIRURLs = map[string]string{
	"APNIC":   apnicDelegatedURL,
	"RIPE":    ripeDelegatedURL,
	"AFRINIC": afrinicDelegatedURL,
	"LACNIC":  lacnicDelegatedURL,
	"ARIN":    arinDelegatedURL,
}

// GetRIRReader returns a (cached) reader over the named RIR's delegated
// allocation feed.
func GetRIRReader(name string) (io.ReadCloser, error) {
	url, ok := RIRURLs[name]
	if !ok {
		return nil, fmt.Errorf("gensources: unknown RIR %q", name)
	}
	return genutil.GetCachedReader(url, "["+name+"]")
}
