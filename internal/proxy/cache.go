package proxy

import (
	"errors"
	"net/http"

	"github.com/elazarl/goproxy"
	"github.com/sirupsen/logrus"

	"github.com/iTrooz/resource-cache/internal/cache"
	"github.com/iTrooz/resource-cache/internal/resource"
	"github.com/iTrooz/resource-cache/internal/webservice"
)

// shouldBeCached determines if a request goes through the cache based on rules
func (s *Server) shouldBeCached(requ *http.Request) bool {
	if requ.Method != http.MethodGet {
		return false
	}
	// entries hold whole bodies only
	if requ.Header.Get("Range") != "" {
		return false
	}

	matched := false
	for _, rule := range s.rules {
		if rule.Match(requ) {
			matched = true
			break
		}
	}

	if s.config.Rules.Mode == "whitelist" {
		return matched
	}
	return !matched
}

// serveFromCache answers requ through the read-through cache
func (s *Server) serveFromCache(requ *http.Request) *http.Response {
	targetURL := getTargetURL(requ)

	res, err := resource.Raw(targetURL, resource.MethodGet)
	if err != nil {
		logrus.Debugf("Not caching %s: %v", targetURL, err)
		return nil
	}

	status := "MISS"
	if s.cached.Cache().Contains(targetURL) {
		status = "HIT"
	}

	body, err := webservice.Fetch(requ.Context(), s.cached, res)
	if err != nil {
		var terr *webservice.TransportError
		if errors.As(err, &terr) && terr.StatusCode != 0 {
			logrus.Infof("Passing through %s %s (status %d, not cached)", requ.Method, targetURL, terr.StatusCode)
			return upstreamResponse(requ, terr)
		}
		logrus.Errorf("Failed to fetch %s: %v", targetURL, err)
		return goproxy.NewResponse(requ, goproxy.ContentTypeText, http.StatusBadGateway, err.Error())
	}

	resp := goproxy.NewResponse(requ, http.DetectContentType(body), http.StatusOK, string(body))
	resp.Header.Set("X-Cache", status)
	resp.Header.Set("X-Cache-Key", cache.Key(targetURL))
	logrus.Infof("Served %s %s (%s)", requ.Method, targetURL, status)
	return resp
}

// upstreamResponse replays an upstream answer the cache did not accept
func upstreamResponse(requ *http.Request, terr *webservice.TransportError) *http.Response {
	resp := goproxy.NewResponse(requ, "", terr.StatusCode, string(terr.Body))
	resp.Header.Del("Content-Type")
	for name, values := range terr.Header {
		switch name {
		case "Content-Length", "Connection", "Transfer-Encoding":
			continue
		}
		resp.Header[name] = append([]string(nil), values...)
	}
	resp.Header.Set("X-Cache", "BYPASS")
	return resp
}
