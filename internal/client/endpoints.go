package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tbourn/go-postgen/internal/domain"
)

// Generate requests a single generation (POST /generate).
func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest, idemKey string) (domain.GenerateResponse, error) {
	var out domain.GenerateResponse
	err := c.do(ctx, request{
		endpoint: "POST /generate",
		method:   http.MethodPost,
		path:     "/generate",
		idemKey:  idemKey,
		body:     domain.GenerateBody{GenerateRequest: req},
	}, &out)
	return out, err
}

// GenerateVariants requests an n-way batch (POST /generate with variants).
// The server may still answer with the single-generation shape.
func (c *Client) GenerateVariants(ctx context.Context, req domain.GenerateRequest, n int, idemKey string) (domain.GenerateResponse, error) {
	var out domain.GenerateResponse
	err := c.do(ctx, request{
		endpoint: "POST /generate",
		method:   http.MethodPost,
		path:     "/generate",
		idemKey:  idemKey,
		body:     domain.GenerateBody{GenerateRequest: req, Variants: n},
	}, &out)
	return out, err
}

// RateLimitStatus queries GET /generate/status. Both a bare status and one
// wrapped in {data: ...} are accepted.
func (c *Client) RateLimitStatus(ctx context.Context) (domain.RateLimitStatus, error) {
	var out struct {
		domain.RateLimitStatus
		Data *domain.RateLimitStatus `json:"data"`
	}
	if err := c.do(ctx, request{
		endpoint: "GET /generate/status",
		method:   http.MethodGet,
		path:     "/generate/status",
	}, &out); err != nil {
		return domain.RateLimitStatus{}, err
	}
	if out.Data != nil {
		return *out.Data, nil
	}
	return out.RateLimitStatus, nil
}

// Iterate asks for a new version of postID (POST /posts/:id/iterate). The
// response carries the quota left after the iteration.
func (c *Client) Iterate(ctx context.Context, postID string, req domain.IterateRequest, idemKey string) (domain.IterateResponse, error) {
	var out domain.IterateResponse
	err := c.do(ctx, request{
		endpoint: "POST /posts/:id/iterate",
		method:   http.MethodPost,
		path:     "/posts/" + url.PathEscape(postID) + "/iterate",
		idemKey:  idemKey,
		body:     req,
	}, &out)
	return out, err
}

// ListVersions returns the authoritative version history of postID.
func (c *Client) ListVersions(ctx context.Context, postID string) (domain.VersionList, error) {
	var out domain.Envelope[domain.VersionList]
	err := c.do(ctx, request{
		endpoint: "GET /posts/:id/versions",
		method:   http.MethodGet,
		path:     "/posts/" + url.PathEscape(postID) + "/versions",
	}, &out)
	return out.Data, err
}

// SelectVersion marks versionID as the selected version of postID. Any 2xx
// response is success; the body is ignored.
func (c *Client) SelectVersion(ctx context.Context, postID, versionID string) error {
	return c.do(ctx, request{
		endpoint: "POST /posts/:id/versions/:versionId/select",
		method:   http.MethodPost,
		path:     "/posts/" + url.PathEscape(postID) + "/versions/" + url.PathEscape(versionID) + "/select",
	}, nil)
}

// ListProfiles returns the caller's profiles.
func (c *Client) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	return list[domain.Profile](ctx, c, "/profiles")
}

// ListPlatforms returns every publishing platform.
func (c *Client) ListPlatforms(ctx context.Context) ([]domain.Platform, error) {
	return list[domain.Platform](ctx, c, "/platforms")
}

// ListProjects returns the caller's projects.
func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return list[domain.Project](ctx, c, "/projects")
}

func list[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out domain.Envelope[[]T]
	if err := c.do(ctx, request{
		endpoint: "GET " + path,
		method:   http.MethodGet,
		path:     path,
	}, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
