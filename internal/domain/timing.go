package domain

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"time"
)

// ConstantTimeEqual compares two byte strings in time independent of how many
// leading bytes match. Every credential comparison in this service goes
// through here.
func ConstantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// JitterBetween picks a cryptographically random duration in [min, max].
// It backs the latency mask that keeps recipient-enumeration probes from
// learning anything from response timing.
func JitterBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := uint64(max - min)
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return min
	}
	return min + time.Duration(binary.BigEndian.Uint64(raw[:])%(span+1))
}
