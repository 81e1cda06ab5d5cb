package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFromValues(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := Event{Type: EventApproved, RequestID: "7_github", UserID: 7, Platform: PlatformGitHub, Status: RequestApproved, At: at}

	// redis returns every field as a string
	values := make(map[string]interface{})
	for k, v := range in.Values() {
		values[k] = fmt.Sprint(v)
	}

	out, err := EventFromValues("1-0", values)
	require.NoError(t, err)
	in.StreamID = "1-0"
	assert.Equal(t, in, out)

	values["type"] = "deleted"
	_, err = EventFromValues("1-1", values)
	assert.Error(t, err)
}
