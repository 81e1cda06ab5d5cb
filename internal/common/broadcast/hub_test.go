package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub(t *testing.T) {
	h := NewHub[string](1)

	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelB()

	assert.Equal(t, 2, h.Publish("approved"))
	assert.Equal(t, "approved", <-a)
	assert.Equal(t, "approved", <-b)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, h.Len())

	// b's buffer holds one value; the second publish is dropped for it
	assert.Equal(t, 1, h.Publish("one"))
	assert.Equal(t, 0, h.Publish("two"))
	assert.Equal(t, "one", <-b)
}
