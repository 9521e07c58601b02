// Package token provides credential and identifier generation utilities.
package token

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Hash computes the hex encoded SHA-256 hash of data.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ShortDigest returns the first n lower-case hex characters of the SHA-256
// hash of data.
func ShortDigest(data []byte, n int) string {
	full := Hash(data)
	if n > len(full) {
		n = len(full)
	}
	return full[:n]
}

// TimestampDigest hashes an 8-byte little-endian unix timestamp followed by
// nonce and returns the first n hex characters.
func TimestampDigest(unixSeconds int64, nonce []byte, n int) string {
	buf := make([]byte, 8, 8+len(nonce))
	binary.LittleEndian.PutUint64(buf, uint64(unixSeconds))
	buf = append(buf, nonce...)
	return ShortDigest(buf, n)
}
