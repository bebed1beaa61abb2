package graphstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/accordhq/accord/internal/model"
)

const connectTimeout = 10 * time.Second

// Client wraps a neo4j driver for the external control-link graph. The
// graph is read-only to this system.
type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// NewClient connects and verifies connectivity. An empty URI means the live
// graph is not configured; callers get (nil, nil) and should fall back to a
// static graph file.
func NewClient(ctx context.Context, cfg model.GraphConfig) (*Client, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, nil
	}

	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		username = "neo4j"
	}

	auth := neo4j.BasicAuth(username, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(uri, auth, func(config *neo4j.Config) {
		config.SocketConnectTimeout = connectTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("graphstore: init driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graphstore: verify connectivity: %w", err)
	}

	return &Client{
		Driver:   driver,
		Database: strings.TrimSpace(cfg.Database),
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
