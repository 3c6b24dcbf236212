package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mediaflow/internal/api"
	"mediaflow/internal/config"
)

// apiClient talks to the daemon's HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

// newAPIClient resolves the API address from the --api flag or, when unset,
// from the configuration file's bind address.
func newAPIClient(apiFlag, configFlag string) (*apiClient, error) {
	addr := strings.TrimSpace(apiFlag)
	if addr == "" {
		cfg, _, _, err := config.Load(configFlag)
		if err != nil {
			return nil, fmt.Errorf("resolve api address: %w", err)
		}
		addr = cfg.Paths.APIBind
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	parsed, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid api address %q: %w", addr, err)
	}
	parsed.Path = ""
	parsed.RawQuery = ""

	return &apiClient{
		base: parsed.String(),
		http: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *apiClient) get(path string, target any) error {
	return c.do(http.MethodGet, path, nil, target)
}

func (c *apiClient) post(path string, body, target any) error {
	return c.do(http.MethodPost, path, body, target)
}

func (c *apiClient) put(path string, body, target any) error {
	return c.do(http.MethodPut, path, body, target)
}

func (c *apiClient) patch(path string, body, target any) error {
	return c.do(http.MethodPatch, path, body, target)
}

func (c *apiClient) delete(path string) error {
	return c.do(http.MethodDelete, path, nil, nil)
}

func (c *apiClient) do(method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// download streams a raw (non-JSON) endpoint to the writer.
func (c *apiClient) download(path string, w io.Writer) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}
