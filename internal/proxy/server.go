package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elazarl/goproxy"
	"github.com/sirupsen/logrus"

	"github.com/iTrooz/resource-cache/internal/config"
	"github.com/iTrooz/resource-cache/internal/webservice"
)

// Server is a forward proxy answering cacheable GETs from the read-through cache
type Server struct {
	config *config.Config
	proxy  *goproxy.ProxyHttpServer
	cached *webservice.Cached
	rules  []Rule
}

// New creates a new proxy server over cached
func New(cfg *config.Config, cached *webservice.Cached) (*Server, error) {
	s := &Server{
		config: cfg,
		proxy:  goproxy.NewProxyHttpServer(),
		cached: cached,
		rules:  rulesFromConfig(cfg),
	}
	s.proxy.Verbose = logrus.IsLevelEnabled(logrus.TraceLevel)

	if err := s.setupHTTPSProxyHandler(); err != nil {
		return nil, err
	}
	s.proxy.OnRequest().DoFunc(s.handleRequest)

	return s, nil
}

// GetProxy returns the proxy handler (exported for testing)
func (s *Server) GetProxy() http.Handler {
	return s.proxy
}

// Start serves the proxy until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.proxy,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.Errorf("Failed to shut down proxy: %v", err)
		}
	}()

	logrus.Infof("Starting caching proxy on port %d", s.config.Server.Port)
	logrus.Infof("Cache directory: %s", s.config.Cache.Folder)
	logrus.Infof("Rules mode: %s", s.config.Rules.Mode)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRequest(requ *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
	if !s.shouldBeCached(requ) {
		logrus.Debugf("Passing through %s %s", requ.Method, requ.URL)
		return requ, nil
	}

	if resp := s.serveFromCache(requ); resp != nil {
		return requ, resp
	}
	return requ, nil
}
