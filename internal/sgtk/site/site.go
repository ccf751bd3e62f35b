// Package site defines the connection boundary to the central
// digital-asset-management service. The descriptor and bootstrap
// packages consume this interface; transport details stay out of the
// core.
package site

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

// PipelineConfiguration is a configuration entity registered on the
// site, matched against a running integration via plugin-id patterns.
type PipelineConfiguration struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	PluginIDs     []string  `json:"plugin_ids"`
	DescriptorURI string    `json:"descriptor"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Connection is the site capability set the core consumes.
type Connection interface {
	// BundleVersions lists the versions registered for a named bundle
	// in the central app store.
	BundleVersions(ctx context.Context, name string) ([]string, error)
	// DownloadBundle streams the tar.gz payload of one bundle version.
	DownloadBundle(ctx context.Context, name, version string, dest io.Writer) error
	// FindPipelineConfigurations returns configurations whose plugin-id
	// patterns could match pluginID.
	FindPipelineConfigurations(ctx context.Context, pluginID string) ([]PipelineConfiguration, error)
	// GetPipelineConfiguration fetches one configuration by id.
	GetPipelineConfiguration(ctx context.Context, id int) (*PipelineConfiguration, error)
}

// HTTPConnection talks to the site's JSON API.
type HTTPConnection struct {
	server string
	client *http.Client
}

// NewHTTPConnection builds a connection against a server base URL.
func NewHTTPConnection(server string, client *http.Client) *HTTPConnection {
	return &HTTPConnection{server: server, client: client}
}

// BundleVersions lists registered versions for a bundle.
func (c *HTTPConnection) BundleVersions(ctx context.Context, name string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bundles/%s/versions", c.server, url.PathEscape(name))
	var payload struct {
		Versions []string `json:"versions"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Versions, nil
}

// DownloadBundle streams a bundle payload into dest.
func (c *HTTPConnection) DownloadBundle(ctx context.Context, name, version string, dest io.Writer) error {
	endpoint := fmt.Sprintf("%s/api/v1/bundles/%s/%s/download",
		c.server, url.PathEscape(name), url.PathEscape(version))
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if _, err := io.Copy(dest, resp.Body); err != nil {
		return fmt.Errorf("%w: %s: %w", helpers.ErrDownloadFailed, endpoint, err)
	}
	return nil
}

// FindPipelineConfigurations queries configurations for a plugin id.
func (c *HTTPConnection) FindPipelineConfigurations(ctx context.Context, pluginID string) ([]PipelineConfiguration, error) {
	endpoint := fmt.Sprintf("%s/api/v1/pipeline_configurations?plugin_id=%s", c.server, url.QueryEscape(pluginID))
	var payload struct {
		Configurations []PipelineConfiguration `json:"configurations"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Configurations, nil
}

// GetPipelineConfiguration fetches one configuration by id.
func (c *HTTPConnection) GetPipelineConfiguration(ctx context.Context, id int) (*PipelineConfiguration, error) {
	endpoint := fmt.Sprintf("%s/api/v1/pipeline_configurations/%d", c.server, id)
	var payload PipelineConfiguration
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *HTTPConnection) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", helpers.ErrDownloadFailed, endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s (%s)", helpers.ErrDownloadFailed, endpoint, resp.Status)
	}
	return resp, nil
}

func (c *HTTPConnection) getJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from %s: %w", endpoint, err)
	}
	return nil
}
