package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

// CodeResponse is a QR code as returned by the API, including derived URLs
type CodeResponse struct {
	domain.QRCode
	ScanURL  string `json:"scan_url"`
	ImageURL string `json:"image_url"`
}

// Client represents an HTTP client for the QR engine API
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient creates a new QR engine client
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Create registers a new QR code
func (c *Client) Create(ctx context.Context, req *domain.CreateRequest) (*CodeResponse, error) {
	var result CodeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/qr", req, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Get retrieves a QR code by id
func (c *Client) Get(ctx context.Context, id string) (*CodeResponse, error) {
	var result CodeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/qr/"+id, nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// List retrieves QR codes matching the filter
func (c *Client) List(ctx context.Context, filter domain.ListFilter) ([]*CodeResponse, error) {
	query := url.Values{}
	if filter.CampaignID != "" {
		query.Set("campaign_id", filter.CampaignID)
	}
	if filter.State != "" {
		query.Set("state", string(filter.State))
	}
	if filter.JourneyState != "" {
		query.Set("journey_state", string(filter.JourneyState))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	path := "/api/qr"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var results []*CodeResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, http.StatusOK, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Activate transitions a QR code to active
func (c *Client) Activate(ctx context.Context, id string) (*CodeResponse, error) {
	var result CodeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/qr/"+id+"/activate", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update applies a partial update to a QR code
func (c *Client) Update(ctx context.Context, id string, req *domain.UpdateRequest) (*CodeResponse, error) {
	var result CodeResponse
	if err := c.doJSON(ctx, http.MethodPatch, "/api/qr/"+id, req, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateVersion appends a redirect-configuration version
func (c *Client) CreateVersion(ctx context.Context, id string, req *domain.VersionCreateRequest) (*CodeResponse, error) {
	var result CodeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/qr/"+id+"/versions", req, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Analytics retrieves the per-code analytics payload
func (c *Client) Analytics(ctx context.Context, id string) (*domain.Analytics, error) {
	var result domain.Analytics
	if err := c.doJSON(ctx, http.MethodGet, "/api/qr/"+id+"/analytics", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CampaignAnalytics retrieves the campaign roll-up
func (c *Client) CampaignAnalytics(ctx context.Context, campaignID string) (*domain.CampaignAnalytics, error) {
	var result domain.CampaignAnalytics
	if err := c.doJSON(ctx, http.MethodGet, "/api/campaigns/"+campaignID+"/analytics", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// doJSON performs one API round trip with an optional JSON body
func (c *Client) doJSON(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("not found")
	}
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
