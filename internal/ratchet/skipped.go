package ratchet

import "olm/internal/primitives"

// MaxSkippedMessageKeys bounds the skipped-key cache; once full, the
// oldest entry is discarded to make room for a new one. This is a
// policy choice, not a protocol constant — audit it before raising it,
// since it is also used as the hard cap on how far a single incoming
// message is allowed to advance a chain (the DoS guard described
// alongside maxChainAdvance in package olm).
const MaxSkippedMessageKeys = 2000

// skippedKey is one cached message key, addressed by the remote ratchet
// public key it was derived under and its chain index.
type skippedKey struct {
	remote [32]byte
	index  uint32
	key    [32]byte
}

// SkippedKeyCache holds message keys for chain indices that were
// skipped over because a later message arrived first. It is ordered by
// insertion so the oldest entry can be evicted first once the cache is
// full.
type SkippedKeyCache struct {
	entries  []skippedKey
	capacity int
}

// NewSkippedKeyCache returns an empty cache bounded at capacity entries.
func NewSkippedKeyCache(capacity int) *SkippedKeyCache {
	return &SkippedKeyCache{capacity: capacity}
}

// Put stores a message key for (remote, index), evicting the oldest
// entry first if the cache is already full.
func (c *SkippedKeyCache) Put(remote [32]byte, index uint32, key [32]byte) {
	if len(c.entries) >= c.capacity && len(c.entries) > 0 {
		primitives.Zeroize(c.entries[0].key[:])
		c.entries = c.entries[1:]
	}
	c.entries = append(c.entries, skippedKey{remote: remote, index: index, key: key})
}

// Take removes and returns the message key for (remote, index), if
// present. The key is not zeroized here; ownership passes to the
// caller, who decrypts with it and then zeroizes it.
func (c *SkippedKeyCache) Take(remote [32]byte, index uint32) ([32]byte, bool) {
	for i, e := range c.entries {
		if e.remote == remote && e.index == index {
			key := e.key
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return key, true
		}
	}
	return [32]byte{}, false
}

// Len reports the number of cached keys.
func (c *SkippedKeyCache) Len() int { return len(c.entries) }

// Entry is one cached skipped message key, exported for pickling.
type Entry struct {
	Remote [32]byte
	Index  uint32
	Key    [32]byte
}

// All returns every cached entry in insertion order, oldest first.
func (c *SkippedKeyCache) All() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = Entry{Remote: e.remote, Index: e.index, Key: e.key}
	}
	return out
}

// Restore repopulates the cache from previously-exported entries,
// preserving their original insertion order.
func (c *SkippedKeyCache) Restore(entries []Entry) {
	c.entries = make([]skippedKey, len(entries))
	for i, e := range entries {
		c.entries[i] = skippedKey{remote: e.Remote, index: e.Index, key: e.Key}
	}
}

// Clear zeroizes and discards every cached key.
func (c *SkippedKeyCache) Clear() {
	for i := range c.entries {
		primitives.Zeroize(c.entries[i].key[:])
	}
	c.entries = nil
}
