// Package nodeapi is the resource client for managed nodes. Node records are
// passed through as opaque JSON objects.
package nodeapi

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-auth-session/apiclient"
)

const (
	PathList = "/node/list"
	// PathUp and PathDown are agent liveness endpoints and never carry a bearer token
	PathUp   = "/node/up"
	PathDown = "/node/down"
)

type Node map[string]any

type Client struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Client {
	return &Client{api: api}
}

func (c *Client) List(ctx context.Context) ([]Node, error) {
	nodes := []Node{}
	if err := c.api.DoJSON(ctx, http.MethodGet, PathList, nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *Client) Up(ctx context.Context, info Node) error {
	return c.api.DoJSON(ctx, http.MethodPost, PathUp, info, nil)
}

func (c *Client) Down(ctx context.Context, info Node) error {
	return c.api.DoJSON(ctx, http.MethodPost, PathDown, info, nil)
}
