package exchange

import (
	"strings"
	"time"
)

// Settings is the per-exchange override record. Zero fields fall back to the
// connector's own defaults.
type Settings struct {
	RESTBaseURL       string
	HTTPTimeout       time.Duration
	ProxyURL          string
	PageLimit         int
	RequestsPerSecond float64
	SpotOnly          bool
	Params            map[string]string
}

// WithDefaults fills zero fields from def. Params are merged with s winning.
func (s Settings) WithDefaults(def Settings) Settings {
	out := s
	out.RESTBaseURL = strings.TrimRight(strings.TrimSpace(out.RESTBaseURL), "/")
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = strings.TrimRight(def.RESTBaseURL, "/")
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = def.HTTPTimeout
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	out.ProxyURL = strings.TrimSpace(out.ProxyURL)
	if out.ProxyURL == "" {
		out.ProxyURL = def.ProxyURL
	}
	if out.PageLimit <= 0 || (def.PageLimit > 0 && out.PageLimit > def.PageLimit) {
		out.PageLimit = def.PageLimit
	}
	if out.RequestsPerSecond <= 0 {
		out.RequestsPerSecond = def.RequestsPerSecond
	}
	out.SpotOnly = out.SpotOnly || def.SpotOnly
	out.Params = mergeParams(def.Params, s.Params)
	return out
}

// Apply merges the settings over a base request: the limit is clamped to the
// page limit and configured params are added without replacing params the
// caller already set.
func (s Settings) Apply(req FetchRequest) FetchRequest {
	out := req
	if s.PageLimit > 0 && (out.Limit <= 0 || out.Limit > s.PageLimit) {
		out.Limit = s.PageLimit
	}
	out.Params = mergeParams(s.Params, req.Params)
	return out
}

func mergeParams(base, over map[string]string) map[string]string {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
