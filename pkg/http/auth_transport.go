package http

import "net/http"

type headerTransport struct {
	header    string
	value     string
	transport http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())

	if t.value != "" {
		reqCopy.Header.Set(t.header, t.value)
	}

	return t.transport.RoundTrip(reqCopy)
}

// WithAPIKey sets an api-key header on every request (Qdrant-style auth).
func WithAPIKey(key string) HttpOpts {
	if key == "" {
		return func(*httpConfig) {}
	}
	return WithHeader("api-key", key)
}

// WithHeader sets a static header on every request.
func WithHeader(header, value string) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &headerTransport{
			header:    header,
			value:     value,
			transport: rt,
		}
	})
}
