// Package transport decorates outgoing requests with the signed-in user's
// bearer token.
package transport

import "net/http"

// TokenSource yields the current access token. ok is false when nobody is
// signed in.
type TokenSource interface {
	AccessToken() (token string, ok bool)
}

// BearerTransport adds "Authorization: Bearer <token>" when Tokens has one
// and sends the request unauthenticated otherwise.
type BearerTransport struct {
	Base   http.RoundTripper
	Tokens TokenSource
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Tokens == nil {
		return base.RoundTrip(req)
	}
	token, ok := t.Tokens.AccessToken()
	if !ok || token == "" {
		return base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(r)
}

// NewClient returns an http.Client that authenticates with tokens.
func NewClient(tokens TokenSource, base http.RoundTripper) *http.Client {
	return &http.Client{Transport: &BearerTransport{Base: base, Tokens: tokens}}
}
