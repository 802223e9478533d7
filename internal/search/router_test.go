package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewURLRouter(t *testing.T) {
	tests := []struct {
		raw     string
		wantURL string
		param   string
		present bool
	}{
		{"", "/", "", false},
		{"/", "/", "", false},
		{"/?name=Pikachu", "/?name=Pikachu", "Pikachu", true},
		{"/?name=", "/?name=", "", true},
		{"http://example.com/?name=Mew#card", "/?name=Mew", "Mew", true},
		{"/?name=Mr.+Mime", "/?name=Mr.+Mime", "Mr. Mime", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r, err := NewURLRouter(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, r.URL())
			v, ok := r.QueryParam(ParamName)
			assert.Equal(t, tt.param, v)
			assert.Equal(t, tt.present, ok)
		})
	}
}

func TestNewURLRouterRejectsBadQuery(t *testing.T) {
	_, err := NewURLRouter("/?name=%zz")
	assert.Error(t, err)
}

func TestURLRouterSetAndDelete(t *testing.T) {
	r, err := NewURLRouter("/")
	require.NoError(t, err)

	r.SetQueryParam(ParamName, "Mr. Mime")
	assert.Equal(t, "/?name=Mr.+Mime", r.URL())

	r.DeleteQueryParam(ParamName)
	assert.Equal(t, "/", r.URL())
}
