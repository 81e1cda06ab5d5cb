package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query   string
		want    Params
		wantErr bool
	}{
		{query: "", want: Params{Page: 1, Limit: DefaultLimit}},
		{query: "page=3&limit=25&search=+go+", want: Params{Page: 3, Limit: 25, Search: "go"}},
		{query: "limit=1000", want: Params{Page: 1, Limit: MaxLimit}},
		{query: "page=0", wantErr: true},
		{query: "limit=abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/?"+tt.query, nil)

			got, err := FromQuery(c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlice(t *testing.T) {
	all := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25}

	first := Slice(all, Params{Page: 1, Limit: 10})
	assert.Equal(t, 3, first.TotalPages)
	assert.Equal(t, 1, first.CurrentPage)
	assert.Len(t, first.Items, 10)

	last := Slice(all, Params{Page: 3, Limit: 10})
	assert.Equal(t, []int{21, 22, 23, 24, 25}, last.Items)

	past := Slice(all, Params{Page: 9, Limit: 10})
	assert.Empty(t, past.Items)
	assert.NotNil(t, past.Items)

	empty := Slice([]int(nil), Params{Page: 1, Limit: 10})
	assert.Equal(t, 1, empty.TotalPages)
	assert.Equal(t, 0, empty.Total)
}
