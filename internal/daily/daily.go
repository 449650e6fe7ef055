// Package daily derives the "number of the day": a target that is the same
// for every game started on a given UTC date.
package daily

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

var ErrBadMaxNumber = errors.New("max number must be at least 2")

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Target returns a deterministic target in [1, maxNumber] for the date,
// computed as keyed BLAKE2b-256(salt, YYYY-MM-DD) mod maxNumber + 1.
// The salt is used as the hash key and may be at most 64 bytes.
func Target(date time.Time, salt string, maxNumber int) (int, error) {
	if maxNumber < 2 {
		return 0, ErrBadMaxNumber
	}
	h, err := blake2b.New256([]byte(salt))
	if err != nil {
		return 0, fmt.Errorf("daily hash: %w", err)
	}
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for the modulus
	n := binary.BigEndian.Uint64(sum[:8])
	return int(n%uint64(maxNumber)) + 1, nil
}
