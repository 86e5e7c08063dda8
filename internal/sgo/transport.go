package sgo

import "net/http"

// AuthTransport sets the static token and JSON accept header on every
// request.
type AuthTransport struct {
	token string
	base  http.RoundTripper
}

// NewAuthTransport wraps base; a nil base means http.DefaultTransport.
func NewAuthTransport(token string, base http.RoundTripper) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &AuthTransport{token: token, base: base}
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	req.Header.Set("Token", t.token)
	req.Header.Set("Accept", "application/json")

	return t.base.RoundTrip(req)
}
