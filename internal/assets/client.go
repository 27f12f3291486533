// Package assets talks to the asset-management collaborator. The registry
// never persists assets; it only checks that a referenced asset token
// resolves at validation time.
package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"device-registry/internal/domain"
)

// ErrAssetNotFound means the collaborator answered but knows no asset with
// the given token. Transport failures are returned as distinct errors.
var ErrAssetNotFound = errors.New("asset not found")

// Resolver is the surface the assignment service depends on.
type Resolver interface {
	GetAssetByToken(ctx context.Context, token string) (*domain.Asset, error)
}

// Client is a thin HTTP client for the asset-management API.
type Client struct {
	http *resty.Client
	log  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Accept", "application/json")
	return &Client{http: c, log: log}
}

func (c *Client) GetAssetByToken(ctx context.Context, token string) (*domain.Asset, error) {
	var asset domain.Asset
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&asset).
		SetPathParam("token", token).
		Get("/assets/{token}")
	if err != nil {
		c.log.Warn("asset lookup failed",
			zap.String("asset_token", token), zap.Error(err))
		return nil, fmt.Errorf("asset lookup: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return &asset, nil
	case http.StatusNotFound:
		return nil, ErrAssetNotFound
	default:
		c.log.Warn("asset lookup returned unexpected status",
			zap.String("asset_token", token), zap.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("asset lookup: unexpected status %d", resp.StatusCode())
	}
}
