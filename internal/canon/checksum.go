package canon

import (
	"crypto/md5" //nolint:gosec
	"encoding/hex"
)

// Checksum returns the hex-encoded MD5 digest of the UTF-8 bytes of s.
//
// The algorithm, encoding and canonicalization here are a durability
// contract: changing any of them invalidates every checksum already
// persisted in a production migrations table at once.
func Checksum(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
