// Package wireformat encodes and decodes the Olm message wire shapes: the
// pre-key message and the normal message, both framed with a leading
// version byte and a protobuf-style sequence of (tag, value) pairs.
//
// Decoders tolerate and skip unknown tags so that a future field addition
// never breaks an older decoder; encoders always emit the current field
// set in canonical order.
package wireformat
