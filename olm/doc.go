// Package olm implements end-to-end encrypted messaging: a two-party
// Double Ratchet session (Account, Session), a one-to-many group ratchet
// (OutboundGroupSession, InboundGroupSession), public-key sealed-box
// encryption (PkEncryption, PkDecryption, PkSigning), and a short
// authentication string verification helper (SAS).
//
// Every stateful type here is created uninitialized and populated by a
// constructor or a ...FromPickle call, mutated only through its documented
// methods, and should be released with its Clear method so its secret
// state is zeroed before the memory is reused. Operations on a single
// object are not safe for concurrent use; distinct objects may be used
// from distinct goroutines freely as long as they don't share buffers.
package olm
