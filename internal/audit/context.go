package audit

import "context"

const unknown = "unknown"

// Client identifies the network peer behind a request.
type Client struct {
	IP        string
	UserAgent string
}

type clientKey struct{}

func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFrom returns the request client, with "unknown" for missing parts.
func ClientFrom(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey{}).(Client)
	if c.IP == "" {
		c.IP = unknown
	}
	if c.UserAgent == "" {
		c.UserAgent = unknown
	}
	return c
}
