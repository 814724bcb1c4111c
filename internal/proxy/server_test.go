package proxy

import (
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iTrooz/resource-cache/internal/cache"
	"github.com/iTrooz/resource-cache/internal/config"
	"github.com/iTrooz/resource-cache/internal/webservice"
)

func fixtureCached() *webservice.Cached {
	storage := cache.NewDisk(afero.NewMemMapFs())
	return webservice.NewCached(webservice.New(webservice.NewHTTPEngine()), cache.New(storage))
}

func newRequest(t *testing.T, method, target string) *http.Request {
	t.Helper()
	u, err := url.Parse(target)
	require.NoError(t, err)
	return &http.Request{URL: u, Method: method, Host: u.Host, Header: make(http.Header)}
}

func TestNew(t *testing.T) {
	cfg := &config.Config{
		Cache: config.CacheConfig{Folder: "/tmp/test"},
		Rules: config.RulesConfig{Mode: "whitelist"},
	}

	server, err := New(cfg, fixtureCached())
	require.NoError(t, err)
	assert.NotNil(t, server.GetProxy())
}

func TestNewWithMissingCertificate(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{HTTPS: config.HTTPSConfig{
			CACertFile: filepath.Join(dir, "ca.pem"),
			CAKeyFile:  filepath.Join(dir, "ca.key"),
		}},
		Rules: config.RulesConfig{Mode: "whitelist"},
	}

	_, err := New(cfg, fixtureCached())
	assert.Error(t, err)
}

func TestConfigRuleMatch(t *testing.T) {
	rule := &ConfigRule{
		CacheRule: config.CacheRule{
			BaseURI: "https://api.example.com",
			Methods: []string{"get", "POST"},
		},
	}

	tests := []struct {
		name      string
		targetURL string
		method    string
		want      bool
	}{
		{
			name:      "matching URL and method",
			targetURL: "https://api.example.com/users",
			method:    "GET",
			want:      true,
		},
		{
			name:      "method is case insensitive",
			targetURL: "https://api.example.com/users",
			method:    "post",
			want:      true,
		},
		{
			name:      "non-matching method",
			targetURL: "https://api.example.com/users",
			method:    "DELETE",
			want:      false,
		},
		{
			name:      "non-matching URL",
			targetURL: "https://example.com/users",
			method:    "GET",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rule.Match(newRequest(t, tt.method, tt.targetURL))
			if got != tt.want {
				t.Errorf("ConfigRule.Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldBeCached(t *testing.T) {
	rules := []config.CacheRule{{BaseURI: "https://api.example.com", Methods: []string{"GET"}}}

	tests := []struct {
		name      string
		mode      string
		method    string
		targetURL string
		want      bool
	}{
		{name: "whitelist match", mode: "whitelist", method: "GET", targetURL: "https://api.example.com/a", want: true},
		{name: "whitelist miss", mode: "whitelist", method: "GET", targetURL: "https://other.example.com/a", want: false},
		{name: "blacklist match", mode: "blacklist", method: "GET", targetURL: "https://api.example.com/a", want: false},
		{name: "blacklist miss", mode: "blacklist", method: "GET", targetURL: "https://other.example.com/a", want: true},
		{name: "never POST", mode: "blacklist", method: "POST", targetURL: "https://other.example.com/a", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Rules: config.RulesConfig{Mode: tt.mode, Rules: rules}}
			server, err := New(cfg, fixtureCached())
			require.NoError(t, err)

			assert.Equal(t, tt.want, server.shouldBeCached(newRequest(t, tt.method, tt.targetURL)))
		})
	}
}

func TestGetTargetURL(t *testing.T) {
	abs := newRequest(t, "GET", "http://example.com/a?b=c")
	assert.Equal(t, "http://example.com/a?b=c", getTargetURL(abs))

	rel := &http.Request{URL: &url.URL{Path: "/a"}, Host: "example.com"}
	assert.Equal(t, "http://example.com/a", getTargetURL(rel))
}

func TestShouldBeCachedSkipsRangeRequests(t *testing.T) {
	cfg := &config.Config{Rules: config.RulesConfig{Mode: "blacklist"}}
	server, err := New(cfg, fixtureCached())
	require.NoError(t, err)

	requ := newRequest(t, "GET", "https://api.example.com/file")
	assert.True(t, server.shouldBeCached(requ))

	requ.Header.Set("Range", "bytes=0-99")
	assert.False(t, server.shouldBeCached(requ))
}

func TestUpstreamResponse(t *testing.T) {
	requ := newRequest(t, "GET", "https://api.example.com/gone")
	terr := &webservice.TransportError{
		URL:        "https://api.example.com/gone",
		StatusCode: http.StatusGone,
		Header: http.Header{
			"Content-Type":   {"application/json"},
			"Content-Length": {"999"},
			"Etag":           {`"v1"`},
		},
		Body: []byte(`{"error":"gone"}`),
	}

	resp := upstreamResponse(requ, terr)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusGone, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, `"v1"`, resp.Header.Get("Etag"))
	assert.Equal(t, "BYPASS", resp.Header.Get("X-Cache"))
	assert.Equal(t, int64(len(terr.Body)), resp.ContentLength)
	assert.Empty(t, resp.Header.Get("Content-Length"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"error":"gone"}`, string(body))
}
