package utils

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// NewBiddingToken returns an 8-character uppercase hex token generated
// from 4 bytes of cryptographically secure randomness.  Tokens are
// scoped to one (item, user) pair, so the space is large enough that
// collisions at item scale are negligible; the unique index on the
// tokens table catches the pathological case.
func NewBiddingToken() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// NewAuctCode returns a participant code assigned at registration and
// shown on the bidder roster in place of the raw user ID.
func NewAuctCode() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "AH-" + strings.ToUpper(hex.EncodeToString(b)), nil
}

// NewSlipCode returns a 4-digit receipt code in the range 1000-9999,
// drawn from crypto/rand.  Codes are unique per slip via a database
// constraint; callers retry on a duplicate.
func NewSlipCode() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint64(buf[:]) % 9000
	return fmt.Sprintf("%04d", 1000+n), nil
}
