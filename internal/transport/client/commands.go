package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
)

// Commands provides command-line operations for the client
type Commands struct {
	client *Client
}

// NewCommands creates a new Commands instance
func NewCommands(client *Client) *Commands {
	return &Commands{
		client: client,
	}
}

// Create registers a QR code and displays the result
func (c *Commands) Create(ctx context.Context, req *domain.CreateRequest) error {
	result, err := c.client.Create(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("QR code created:\n")
	fmt.Printf("ID: %s\n", result.ID)
	fmt.Printf("Token: %s\n", result.Token)
	fmt.Printf("State: %s\n", result.State)
	fmt.Printf("Scan URL: %s\n", result.ScanURL)
	fmt.Printf("Image URL: %s\n", result.ImageURL)
	fmt.Printf("Default URL: %s\n", result.DefaultURL)
	fmt.Printf("Created At: %s\n", result.CreatedAt.Format(time.RFC3339))

	return nil
}

// Get retrieves and displays one QR code
func (c *Commands) Get(ctx context.Context, id string) error {
	result, err := c.client.Get(ctx, id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			fmt.Printf("QR code '%s' not found\n", id)
			return nil
		}
		return err
	}

	fmt.Printf("QR Code:\n")
	fmt.Printf("ID: %s\n", result.ID)
	fmt.Printf("Token: %s\n", result.Token)
	fmt.Printf("State: %s\n", result.State)
	fmt.Printf("Journey State: %s\n", result.JourneyState)
	fmt.Printf("Default URL: %s\n", result.DefaultURL)
	fmt.Printf("Rules: %d\n", len(result.Rules))
	fmt.Printf("Current Version: %d of %d\n", result.CurrentVersion, len(result.Versions))
	fmt.Printf("Total Scans: %d\n", result.TotalScans)
	fmt.Printf("Unique Contacts: %d\n", result.UniqueContacts)
	if result.LastScannedAt != nil {
		fmt.Printf("Last Scanned At: %s\n", result.LastScannedAt.Format(time.RFC3339))
	} else {
		fmt.Printf("Last Scanned At: Never\n")
	}

	return nil
}

// Activate transitions a QR code to active
func (c *Commands) Activate(ctx context.Context, id string) error {
	result, err := c.client.Activate(ctx, id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			fmt.Printf("QR code '%s' not found\n", id)
			return nil
		}
		return err
	}

	fmt.Printf("QR code '%s' is now %s\n", id, result.State)
	if result.ActivatedAt != nil {
		fmt.Printf("Activated At: %s\n", result.ActivatedAt.Format(time.RFC3339))
	}

	return nil
}

// List displays QR codes in a table format
func (c *Commands) List(ctx context.Context, filter domain.ListFilter) error {
	results, err := c.client.List(ctx, filter)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No QR codes found")
		return nil
	}

	fmt.Printf("%-38s %-14s %-10s %-40s %-12s %s\n", "ID", "Token", "State", "Default URL", "Total Scans", "Unique")
	fmt.Println(strings.Repeat("-", 130))

	for _, result := range results {
		defaultURL := result.DefaultURL
		if len(defaultURL) > 40 {
			defaultURL = defaultURL[:37] + "..."
		}

		fmt.Printf("%-38s %-14s %-10s %-40s %-12d %d\n",
			result.ID,
			result.Token,
			result.State,
			defaultURL,
			result.TotalScans,
			result.UniqueContacts,
		)
	}

	return nil
}

// Analytics displays the per-code analytics payload
func (c *Commands) Analytics(ctx context.Context, id string) error {
	result, err := c.client.Analytics(ctx, id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			fmt.Printf("QR code '%s' not found\n", id)
			return nil
		}
		return err
	}

	fmt.Printf("Analytics for %s:\n", result.QRID)
	fmt.Printf("State: %s\n", result.State)
	fmt.Printf("Total Scans: %d\n", result.TotalScans)
	fmt.Printf("Unique Contacts: %d\n", result.UniqueContacts)
	fmt.Printf("Returning Contacts: %d of %d\n", result.ContactBreakdown.Returning, result.ContactBreakdown.Total)
	fmt.Printf("Current Version: %s (#%d)\n", result.CurrentVersion.Name, result.CurrentVersion.Sequence)
	if result.LastScannedAt != nil {
		fmt.Printf("Last Scanned At: %s\n", result.LastScannedAt.Format(time.RFC3339))
	}

	return nil
}

// CampaignAnalytics displays the campaign roll-up
func (c *Commands) CampaignAnalytics(ctx context.Context, campaignID string) error {
	result, err := c.client.CampaignAnalytics(ctx, campaignID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			fmt.Printf("Campaign '%s' not found\n", campaignID)
			return nil
		}
		return err
	}

	fmt.Printf("Campaign %s:\n", result.CampaignID)
	fmt.Printf("QR Codes: %d\n", result.QRCodeCount)
	fmt.Printf("Total Scans: %d\n", result.TotalScans)
	fmt.Printf("Unique Contacts: %d\n", result.UniqueContacts)

	for _, code := range result.Codes {
		fmt.Printf("  %-38s %-10s scans=%-6d unique=%d\n", code.QRID, code.State, code.Scans, code.UniqueContacts)
	}

	return nil
}
