package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolRoundTrip(t *testing.T) {
	cases := []string{"BTCUSDT", "A", "", "EXACTLY32BYTESLONGSYMBOLNAME1234"}
	for _, c := range cases {
		sym := SymbolFromString(c)
		assert.Equal(t, c, sym.String())
	}
}

func TestSymbolTruncatesSilently(t *testing.T) {
	long := strings.Repeat("X", 40)
	sym := SymbolFromString(long)
	assert.Equal(t, long[:SymbolLen], sym.String())
	assert.Len(t, sym.String(), SymbolLen)
}
