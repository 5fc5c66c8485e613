package restkit

import (
	"context"
	"net/http"
)

type paramsKey struct{}

// WithParams attaches extra query params to ctx. Clients built by
// NewHTTPClient add them to every request sent under that context, which
// lets SDK-backed connectors forward configured params the SDK has no setter
// for.
func WithParams(ctx context.Context, params map[string]string) context.Context {
	if len(params) == 0 {
		return ctx
	}
	return context.WithValue(ctx, paramsKey{}, params)
}

func paramsFrom(ctx context.Context) map[string]string {
	params, _ := ctx.Value(paramsKey{}).(map[string]string)
	return params
}

// paramTransport merges context params into the outgoing query. Params win
// over values already on the URL, matching SetParams.
type paramTransport struct {
	base http.RoundTripper
}

func (t *paramTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	params := paramsFrom(req.Context())
	if len(params) == 0 {
		return t.base.RoundTrip(req)
	}
	out := req.Clone(req.Context())
	q := out.URL.Query()
	SetParams(q, params)
	out.URL.RawQuery = q.Encode()
	return t.base.RoundTrip(out)
}
