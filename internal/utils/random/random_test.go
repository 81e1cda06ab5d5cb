package random

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	for i := 0; i < 100; i++ {
		s, err := String(4, Alphanumeric)
		require.NoError(t, err)
		require.Len(t, s, 4)
		for _, r := range s {
			assert.True(t, strings.ContainsRune(Alphanumeric, r), "unexpected symbol %q", r)
		}
	}

	_, err := String(0, Alphanumeric)
	assert.Error(t, err)
}
