package tests

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iTrooz/resource-cache/internal/cache"
	"github.com/iTrooz/resource-cache/internal/config"
	"github.com/iTrooz/resource-cache/internal/resource"
	"github.com/iTrooz/resource-cache/internal/webservice"
)

func TestProxyIntegration(t *testing.T) {
	upstream := fixture_upstream()
	defer upstream.Close()

	tempDir := t.TempDir()
	cfg := fixture_config(tempDir, nil)

	_, proxyTestServer, client, err := fixture_proxy(cfg)
	require.NoError(t, err)
	defer proxyTestServer.Close()

	t.Run("first request - cache miss", func(t *testing.T) {
		resp, err := client.Get(upstream.URL + "/test")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))

		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "Hello from upstream")
	})

	t.Run("second request - cache hit", func(t *testing.T) {
		resp, err := client.Get(upstream.URL + "/test")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))

		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "Hello from upstream")
	})

	t.Run("upstream fetched once", func(t *testing.T) {
		assert.Equal(t, int32(1), upstream.hits.Load())
	})

	t.Run("verify cache file exists", func(t *testing.T) {
		expectedCachePath := filepath.Join(tempDir, cache.Key(upstream.URL+"/test"))

		data, err := os.ReadFile(expectedCachePath)
		require.NoError(t, err, "cache file should exist at %s", expectedCachePath)
		assert.True(t, strings.HasPrefix(string(data), `{"message": "Hello from upstream"`))
	})
}

func TestProxyIntegrationUpstreamFailure(t *testing.T) {
	upstream := fixture_upstream()
	defer upstream.Close()

	tempDir := t.TempDir()
	_, proxyTestServer, client, err := fixture_proxy(fixture_config(tempDir, nil))
	require.NoError(t, err)
	defer proxyTestServer.Close()

	resp, err := client.Get(upstream.URL + "/broken")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "broken", resp.Header.Get("X-Upstream"))
	assert.Equal(t, "BYPASS", resp.Header.Get("X-Cache"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "upstream failure\n", string(body))

	_, err = os.Stat(filepath.Join(tempDir, cache.Key(upstream.URL+"/broken")))
	assert.True(t, os.IsNotExist(err), "failed fetches must not be cached")
}

func TestProxyIntegrationNon200PassesThrough(t *testing.T) {
	upstream := fixture_upstream()
	defer upstream.Close()

	tempDir := t.TempDir()
	cfg := fixture_config(tempDir, nil)
	cfg.Cache.Coalesce = true
	_, proxyTestServer, client, err := fixture_proxy(cfg)
	require.NoError(t, err)
	defer proxyTestServer.Close()

	for i := 0; i < 2; i++ {
		resp, err := client.Get(upstream.URL + "/empty")
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "BYPASS", resp.Header.Get("X-Cache"))
	}
	assert.Equal(t, int32(2), upstream.hits.Load())

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProxyIntegrationRangeRequestsSkipCache(t *testing.T) {
	upstream := fixture_upstream()
	defer upstream.Close()

	tempDir := t.TempDir()
	_, proxyTestServer, client, err := fixture_proxy(fixture_config(tempDir, nil))
	require.NoError(t, err)
	defer proxyTestServer.Close()

	requ, err := http.NewRequest(http.MethodGet, upstream.URL+"/ranged", nil)
	require.NoError(t, err)
	requ.Header.Set("Range", "bytes=0-3")

	resp, err := client.Do(requ)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Empty(t, resp.Header.Get("X-Cache"))
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProxyIntegrationWithWhitelistRules(t *testing.T) {
	upstream := fixture_upstream()
	defer upstream.Close()

	tempDir := t.TempDir()
	customRules := &config.RulesConfig{
		Mode: "whitelist",
		Rules: []config.CacheRule{
			{
				BaseURI: "https://example.com",
				Methods: []string{"GET"},
			},
		},
	}

	_, proxyTestServer, client, err := fixture_proxy(fixture_config(tempDir, customRules))
	require.NoError(t, err)
	defer proxyTestServer.Close()

	// the upstream is not whitelisted, so both requests are forwarded
	for i := 0; i < 2; i++ {
		resp, err := client.Get(upstream.URL + "/test")
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("X-Cache"))
	}
	assert.Equal(t, int32(2), upstream.hits.Load())

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type greeting struct {
	Message string `json:"message"`
	Path    string `json:"path"`
}

func TestReadThroughJSONResource(t *testing.T) {
	upstream := fixture_upstream()
	defer upstream.Close()

	cached, err := fixture_cached(fixture_config(t.TempDir(), nil))
	require.NoError(t, err)

	res, err := resource.JSON[greeting](upstream.URL+"/items/1", resource.MethodGet)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := webservice.Fetch(context.Background(), cached, res)
		require.NoError(t, err)
		assert.Equal(t, greeting{Message: "Hello from upstream", Path: "/items/1"}, got)
	}
	assert.Equal(t, int32(1), upstream.hits.Load())

	cached.Cache().Clear()
	_, err = webservice.Fetch(context.Background(), cached, res)
	require.NoError(t, err)
	assert.Equal(t, int32(2), upstream.hits.Load())
}

func TestReadThroughSharedDirectory(t *testing.T) {
	upstream := fixture_upstream()
	defer upstream.Close()

	cfg := fixture_config(t.TempDir(), nil)
	writer, err := fixture_cached(cfg)
	require.NoError(t, err)
	reader, err := fixture_cached(cfg)
	require.NoError(t, err)

	res, err := resource.Raw(upstream.URL+"/shared", resource.MethodGet)
	require.NoError(t, err)

	first, err := webservice.Fetch(context.Background(), writer, res)
	require.NoError(t, err)
	second, err := webservice.Fetch(context.Background(), reader, res)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), upstream.hits.Load())
}
