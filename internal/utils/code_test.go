package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBiddingTokenFormat(t *testing.T) {
	re := regexp.MustCompile(`^[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewBiddingToken()
		require.NoError(t, err)
		require.Regexp(t, re, tok)
		seen[tok] = true
	}
	// 100 draws from a 2^32 space should never collide.
	require.Len(t, seen, 100)
}

func TestNewSlipCodeRange(t *testing.T) {
	re := regexp.MustCompile(`^[1-9][0-9]{3}$`)
	for i := 0; i < 100; i++ {
		code, err := NewSlipCode()
		require.NoError(t, err)
		require.Regexp(t, re, code)
	}
}

func TestNewAuctCodeFormat(t *testing.T) {
	code, err := NewAuctCode()
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^AH-[0-9A-F]{6}$`), code)
}
