// Package ratchet implements the symmetric chain ratchet and the
// Diffie-Hellman root ratchet that together form the sending/receiving
// half of a two-party Olm session, plus the bounded skipped-message-key
// cache that lets a receiver decrypt messages that arrive out of order.
//
// Package olm owns session lifecycle and wire framing; this package only
// knows about byte-array keys and counters.
package ratchet
