package urlutil

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "HTTP://Example.COM/Path", "http://example.com/Path"},
		{"default http port", "http://example.com:80/a", "http://example.com/a"},
		{"default https port", "https://example.com:443/a", "https://example.com/a"},
		{"keep other port", "https://example.com:8443/a", "https://example.com:8443/a"},
		{"fragment", "https://example.com/a#top", "https://example.com/a"},
		{"trailing slash", "https://example.com/a/", "https://example.com/a"},
		{"root", "https://example.com", "https://example.com/"},
		{"query order", "https://example.com/?b=2&a=1", "https://example.com/?a=1&b=2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalize_Rejects(t *testing.T) {
	for _, in := range []string{"ftp://example.com", "/relative", "example.com"} {
		_, err := Canonicalize(in)
		assert.ErrorIs(t, err, ErrNotHTTP, in)
	}
	_, err := Canonicalize("http://[::1")
	assert.Error(t, err)
}

func mustParse(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func TestEqualURL(t *testing.T) {
	assert.True(t, EqualURL(mustParse(t, "https://Example.com:443/a/#x"), mustParse(t, "https://example.com/a")))
	assert.True(t, EqualURL(mustParse(t, "http://example.com"), mustParse(t, "http://example.com/")))
	assert.True(t, EqualURL(mustParse(t, "http://h/?a=1&b=2"), mustParse(t, "http://h/?b=2&a=1")))
	assert.True(t, EqualURL(mustParse(t, "http://[::1]:80/"), mustParse(t, "http://[::1]/")))

	assert.False(t, EqualURL(mustParse(t, "http://example.com/a"), mustParse(t, "https://example.com/a")))
	assert.False(t, EqualURL(mustParse(t, "http://example.com/A"), mustParse(t, "http://example.com/a")))
	assert.False(t, EqualURL(mustParse(t, "http://example.com:8080/"), mustParse(t, "http://example.com/")))

	assert.True(t, EqualURL(nil, nil))
	assert.False(t, EqualURL(mustParse(t, "http://example.com"), nil))
}

func TestEqualURL_DoesNotModifyInput(t *testing.T) {
	u := mustParse(t, "HTTP://Example.com:80/a/#f")
	before := u.String()
	_ = EqualURL(u, u)
	assert.Equal(t, before, u.String())
}

func TestHostOf(t *testing.T) {
	tests := map[string]string{
		"https://API.example.com:8443/v1": "api.example.com",
		"example.com":                     "example.com",
		"example.com:8080":                "example.com",
		"http://[2001:db8::1]:80/":        "2001:db8::1",
		"example.com.":                    "example.com",
	}
	for in, want := range tests {
		got, err := HostOf(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := HostOf("  ")
	assert.ErrorIs(t, err, ErrNoHost)
	_, err = HostOf("http:///path")
	assert.ErrorIs(t, err, ErrNoHost)
}
