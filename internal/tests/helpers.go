package tests

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/iTrooz/resource-cache/internal/cache"
	"github.com/iTrooz/resource-cache/internal/config"
	"github.com/iTrooz/resource-cache/internal/proxy"
	"github.com/iTrooz/resource-cache/internal/webservice"
)

// upstream is a test origin counting the requests it serves
type upstream struct {
	*httptest.Server
	hits atomic.Int32
}

// fixture_upstream creates a test upstream server
func fixture_upstream() *upstream {
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, requ *http.Request) {
		u.hits.Add(1)
		switch requ.URL.Path {
		case "/broken":
			w.Header().Set("X-Upstream", "broken")
			http.Error(w, "upstream failure", http.StatusInternalServerError)
			return
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "Hello from upstream", "path": "` + requ.URL.Path + `"}`))
	}))
	return u
}

// fixture_config creates a test config with optional rules
func fixture_config(tempDir string, rules *config.RulesConfig) *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 0}, // Will be set by test server
		Cache: config.CacheConfig{
			Folder: tempDir,
		},
		Network: config.NetworkConfig{Timeout: "10s"},
		Rules:   config.RulesConfig{Mode: "blacklist"},
	}

	if rules != nil {
		cfg.Rules = *rules
	}

	return cfg
}

// fixture_cached wires the read-through loader the same way the CLI does
func fixture_cached(cfg *config.Config) (*webservice.Cached, error) {
	storage, err := cache.NewDiskDir(cfg.Cache.Folder)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.GetTimeout()
	if err != nil {
		return nil, err
	}
	engine := webservice.NewHTTPEngine(webservice.WithTimeout(timeout))
	return webservice.NewCached(webservice.New(engine), cache.New(storage)), nil
}

// fixture_proxy_cached wires the loader the way the proxy command does
func fixture_proxy_cached(cfg *config.Config) (*webservice.Cached, error) {
	storage, err := cache.NewDiskDir(cfg.Cache.Folder)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.GetTimeout()
	if err != nil {
		return nil, err
	}
	engine := webservice.NewHTTPEngine(
		webservice.WithTimeout(timeout),
		webservice.WithSuccessStatus(http.StatusOK),
	)
	var opts []webservice.CachedOption
	if cfg.Cache.Coalesce {
		opts = append(opts, webservice.WithCoalescing())
	}
	return webservice.NewCached(webservice.New(engine), cache.New(storage), opts...), nil
}

// fixture_proxy creates a proxy server with the given config and returns the server, test server, and HTTP client
func fixture_proxy(cfg *config.Config) (*proxy.Server, *httptest.Server, *http.Client, error) {
	cached, err := fixture_proxy_cached(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	proxyServer, err := proxy.New(cfg, cached)
	if err != nil {
		return nil, nil, nil, err
	}

	proxyTestServer := httptest.NewServer(proxyServer.GetProxy())

	// Create HTTP client that uses our proxy
	proxyURL, _ := url.Parse(proxyTestServer.URL)
	client := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		},
		Timeout: 10 * time.Second,
	}

	return proxyServer, proxyTestServer, client, nil
}
