package genutil

import "testing"

func TestCacheFileNameUsesPrefixAndBasename(t *testing.T) {
	got := cacheFileName("https://ftp.apnic.net/stats/apnic/delegated-apnic-latest", "[apnic]")
	want := "apnic_delegated-apnic-latest"
	if got != want {
		t.Errorf("cacheFileName = %q, want %q", got, want)
	}
}

func TestCacheFileNameWithoutPrefix(t *testing.T) {
	got := cacheFileName("https://example.com/delegated-ripencc-latest", "")
	want := "delegated-ripencc-latest"
	if got != want {
		t.Errorf("cacheFileName = %q, want %q", got, want)
	}
}
