// Package responsetransformer applies deployment-configured Cache-Control
// policy to generated responses before the cache decides on storage: a rule
// can supply a default for responses that carry no Cache-Control of their
// own, or override whatever the origin handler set.
package responsetransformer

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type Rules []Rule

// Rule matches requests by method, exact path or path prefix and required
// query parameters. An empty Method matches GET only.
type Rule struct {
	Prefix   string            `yaml:"prefix"`
	Path     string            `yaml:"path"`
	Method   string            `yaml:"method"`
	Default  string            `yaml:"default"`
	Override string            `yaml:"override"`
	Query    map[string]string `yaml:"query"`
	Headers  map[string]string `yaml:"headers"`
}

// Apply finds the first rule matching the request and applies it to the
// response headers. Headers named by the rule are always set; Cache-Control
// is overridden or defaulted per the rule. A nil or empty rule set is a
// no-op.
func (r Rules) Apply(req *http.Request, h http.Header) {
	rule := r.find(req)
	if rule == nil {
		return
	}
	if rule.Override != "" {
		log.Trace().Str("path", req.URL.Path).Msg("Overriding Cache-Control header")
		h.Set("Cache-Control", rule.Override)
	} else if rule.Default != "" && h.Get("Cache-Control") == "" {
		log.Trace().Str("path", req.URL.Path).Msg("Applying default Cache-Control header")
		h.Set("Cache-Control", rule.Default)
	}
	for name, value := range rule.Headers {
		h.Set(name, value)
	}
}

func (r Rules) find(req *http.Request) *Rule {
rulesLoop:
	for i, rule := range r {
		if rule.Method == "" && req.Method != http.MethodGet {
			continue
		}
		if rule.Method != "" && rule.Method != req.Method {
			continue
		}
		if rule.Path != "" && rule.Path != req.URL.Path {
			continue
		}
		if rule.Prefix != "" && !strings.HasPrefix(req.URL.Path, rule.Prefix) {
			continue
		}
		if len(rule.Query) > 0 {
			qry := req.URL.Query()
			for name, value := range rule.Query {
				if value == "" && !qry.Has(name) {
					continue rulesLoop
				} else if value != "" && qry.Get(name) != value {
					continue rulesLoop
				}
			}
		}
		return &r[i]
	}
	return nil
}
