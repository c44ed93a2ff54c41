package detector

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/coinsensei/chain-workers/internal/store"
)

// addressSetSize bounds the reloadable monitored-address cache. The set
// holds at most this many addresses: when a chain has more, the LRU
// evicts entries, and an evicted address is not matched by Lookup.
const addressSetSize = 200_000

// AddressSet is the detector's reloadable, case-normalized set of
// actively monitored user deposit addresses (§4.4), backed by an LRU so
// memory stays bounded even for a chain with a very large address book.
type AddressSet struct {
	mu      sync.RWMutex
	cache   *lru.ARCCache
	wallets *store.WalletRepo
	chainID int64
}

// NewAddressSet builds an AddressSet for chainID and performs an initial
// load.
func NewAddressSet(wallets *store.WalletRepo, chainID int64) (*AddressSet, error) {
	cache, err := lru.NewARC(addressSetSize)
	if err != nil {
		return nil, err
	}
	s := &AddressSet{cache: cache, wallets: wallets, chainID: chainID}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads every active user wallet address for the chain from
// the datastore and rebuilds the cache, so newly onboarded deposit
// addresses are picked up without restarting the detector process.
func (s *AddressSet) Reload() error {
	rows, err := s.wallets.MonitoredAddresses(s.chainID)
	if err != nil {
		return err
	}

	fresh, err := lru.NewARC(addressSetSize)
	if err != nil {
		return err
	}
	for _, w := range rows {
		fresh.Add(normalize(w.Address), w.ID)
	}

	s.mu.Lock()
	s.cache = fresh
	s.mu.Unlock()
	return nil
}

// Lookup reports whether addr is a monitored deposit address and, if so,
// the owning user_wallet_addresses id.
func (s *AddressSet) Lookup(addr string) (walletID int64, ok bool) {
	s.mu.RLock()
	cache := s.cache
	s.mu.RUnlock()

	v, ok := cache.Get(normalize(addr))
	if !ok {
		return 0, false
	}
	return v.(int64), true
}

// normalize makes address comparison case-insensitive — EVM addresses
// are checksum-cased on the wire but must match regardless of case
// (§4.4).
func normalize(addr string) string {
	return strings.ToLower(addr)
}
