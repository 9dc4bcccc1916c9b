package port

import "context"

// RequestFunc is the opaque request function supplied by the surrounding
// transport layer. The engine never learns about base URLs, headers or
// serialization; it hands over a path plus query params and gets raw JSON.
type RequestFunc func(ctx context.Context, path string, params map[string]string) ([]byte, error)
