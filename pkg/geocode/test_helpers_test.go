package geocode

import (
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newRewriteClient sends requests under mapsPrefix to the test server,
// keeping the path suffix and query.
func newRewriteClient(testServerURL, mapsPrefix string) *http.Client {
	return &http.Client{Transport: rewriteTransport{server: testServerURL, prefix: mapsPrefix}}
}

type rewriteTransport struct {
	server string
	prefix string
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rest, ok := strings.CutPrefix(req.URL.String(), t.prefix)
	if !ok {
		return http.DefaultTransport.RoundTrip(req)
	}
	target, err := url.Parse(t.server + rest)
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.URL = target
	out.Host = target.Host
	return http.DefaultTransport.RoundTrip(out)
}
