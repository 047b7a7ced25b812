package pagination

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPaginationParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{name: "defaults", query: "", want: Params{Page: 1, Limit: MaxLimit, Offset: 0}},
		{name: "explicit", query: "page=3&limit=20", want: Params{Page: 3, Limit: 20, Offset: 40}},
		{name: "invalid values ignored", query: "page=-1&limit=abc", want: Params{Page: 1, Limit: MaxLimit, Offset: 0}},
		{name: "limit capped", query: "limit=5000", want: Params{Page: 1, Limit: MaxLimit, Offset: 0}},
		{name: "huge page", query: "page=9223372036854775807&limit=10", want: Params{Page: math.MaxInt / 10, Limit: 10, Offset: (math.MaxInt/10 - 1) * 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, *GetPaginationParams(q))
		})
	}
}
