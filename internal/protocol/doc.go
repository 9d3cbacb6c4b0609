// Package protocol is the control protocol carried over the frame and tlv
// layers.
//
// Ownership boundary:
// - tag vocabulary and message accessors
// - Writer: records accumulated into one frame
// - Reader: one frame unstuffed and iterated record by record
//
// One frame holds any number of records, each a varint tag, a one byte
// length and the value. Neither side allocates; every buffer is supplied by
// the caller.
package protocol
