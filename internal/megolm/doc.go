// Package megolm implements the sender-only hash ratchet behind group
// sessions: four chained 256-bit blocks that fast-forward to any later
// index in at most about a thousand hash operations regardless of how far
// the jump is, plus the signed ciphertext framing and session-key
// distribution blob that sit on top of it.
package megolm
