package platform

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id := NewID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewID())
}

func TestNewIDOrdering(t *testing.T) {
	prev := NewID()
	for i := 0; i < 100; i++ {
		next := NewID()
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestNewToken(t *testing.T) {
	tok := NewToken("nk_")
	assert.True(t, strings.HasPrefix(tok, "nk_"))
	assert.Len(t, tok, len("nk_")+shortIDLength*2)
	assert.NotEqual(t, tok, NewToken("nk_"))
}
