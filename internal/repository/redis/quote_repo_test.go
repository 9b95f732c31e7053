package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteNaming(t *testing.T) {
	assert.Equal(t, "last_quote:AAPL", quoteKey("AAPL"))
	assert.Equal(t, "quotes.BRK.B", quoteChannel("BRK.B"))
	assert.Equal(t, "BRK.B", SymbolFromChannel(quoteChannel("BRK.B")))
}

func TestNewQuoteRepo_DefaultTTL(t *testing.T) {
	r := NewQuoteRepo(nil, 0)
	assert.Equal(t, 60.0, r.ttl.Seconds())
}
