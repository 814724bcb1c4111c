package proxy

import (
	"net/http"
	"strings"

	"github.com/iTrooz/resource-cache/internal/config"
)

// Rule matches requests against caching rules
type Rule interface {
	Match(requ *http.Request) bool
}

// ConfigRule implements Rule for rules read from the configuration
type ConfigRule struct {
	config.CacheRule
}

// Match checks the target URL prefix and the method
func (r *ConfigRule) Match(requ *http.Request) bool {
	if !strings.HasPrefix(getTargetURL(requ), r.BaseURI) {
		return false
	}

	for _, m := range r.Methods {
		if strings.EqualFold(m, requ.Method) {
			return true
		}
	}
	return false
}

func rulesFromConfig(cfg *config.Config) []Rule {
	rules := make([]Rule, 0, len(cfg.Rules.Rules))
	for _, rule := range cfg.Rules.Rules {
		rules = append(rules, &ConfigRule{CacheRule: rule})
	}
	return rules
}

func getTargetURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}

	// Reconstruct URL from Host header
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host + r.URL.String()
}
