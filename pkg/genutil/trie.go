package genutil

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// PrefixTrie is a disk-backed longest-prefix store used to dedup the
// millions of allocation lines across five RIRs' delegated-stats files
// before the generator sorts and writes the final CIDR map: adjacent or
// overlapping blocks from different registries collapse onto whichever
// longest match is inserted last, and a badger-backed store means the
// whole run doesn't have to fit in memory.
type PrefixTrie struct {
	db    *badger.DB
	cache sync.Map
}

// OpenPrefixTrie opens (or creates) a badger store at path.
func OpenPrefixTrie(path string) (*PrefixTrie, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("genutil: open prefix trie: %w", err)
	}
	return &PrefixTrie{db: db}, nil
}

// Close releases the underlying badger store.
func (t *PrefixTrie) Close() error { return t.db.Close() }

// Insert records value (the country code, UTF-8 bytes) for ipNet.
func (t *PrefixTrie) Insert(ipNet *net.IPNet, value []byte) error {
	ip := ipNet.IP.To4()
	if ip == nil {
		return fmt.Errorf("genutil: only IPv4 prefixes are supported")
	}
	ones, _ := ipNet.Mask.Size()

	key := make([]byte, 5)
	copy(key, ip)
	key[4] = byte(ones)

	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Lookup returns the value and prefix length of the longest prefix
// covering ip, walking from /32 down to /0.
func (t *PrefixTrie) Lookup(ip net.IP) (val []byte, prefixLen int, err error) {
	target := ip.To4()
	if target == nil {
		return nil, 0, fmt.Errorf("genutil: invalid IPv4 address")
	}
	targetInt := binary.BigEndian.Uint32(target)

	if v, ok := t.cache.Load(targetInt); ok {
		if v == nil {
			return nil, 0, nil
		}
		res := v.(lookupResult)
		return res.val, res.prefixLen, nil
	}

	var foundVal []byte
	var foundLen int
	err = t.db.View(func(txn *badger.Txn) error {
		key := make([]byte, 5)
		for m := 32; m >= 0; m-- {
			var mask uint32
			if m > 0 {
				mask = uint32(0xFFFFFFFF) << uint(32-m)
			}
			binary.BigEndian.PutUint32(key, targetInt&mask)
			key[4] = byte(m)

			item, getErr := txn.Get(key)
			if getErr == nil {
				foundVal, getErr = item.ValueCopy(nil)
				foundLen = m
				return getErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	if foundVal == nil {
		t.cache.Store(targetInt, nil)
	} else {
		t.cache.Store(targetInt, lookupResult{val: foundVal, prefixLen: foundLen})
	}
	return foundVal, foundLen, nil
}

// ForEach iterates every (network, value) pair in insertion-key order.
func (t *PrefixTrie) ForEach(fn func(key []byte, value []byte) error) error {
	return t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			if err := item.Value(func(v []byte) error { return fn(key, v) }); err != nil {
				return err
			}
		}
		return nil
	})
}

type lookupResult struct {
	val       []byte
	prefixLen int
}
