// Package publish distributes a finished run to the optional outlets:
// a Google Sheets tab, Azure Blob Storage and an AMQP notification.
package publish

import (
	"context"

	"rateios/internal/core"
)

// RunReport is what publishers receive once the workbooks are written.
// Locations maps local workbook paths to remote URLs; publishers that
// upload files fill it and publishers that run later can read it.
type RunReport struct {
	Summary   core.RunSummary
	Grouped   []core.GroupedRow
	Locations map[string]string
}

// Publisher sends a finished run somewhere.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, report RunReport) error
}

// CleanupFunc releases resources held by publishers.
type CleanupFunc func() error

// Result contains the enabled publishers, in run order, and their cleanup.
type Result struct {
	Publishers []Publisher
	Cleanup    CleanupFunc
}

// Type names a publisher kind.
type Type string

const (
	SheetsPublisherType Type = "sheets"
	BlobPublisherType   Type = "blob"
	AMQPPublisherType   Type = "amqp"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// Config holds what the factory needs to build publishers. Empty
// target fields disable the matching publisher.
type Config struct {
	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Azure Blob
	AzureConnectionString string
	AzureBlobServiceURL   string
	AzureBlobContainer    string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Enabled returns the publisher types Config turns on, in run order. Blob
// runs before AMQP so the notification carries the uploaded locations.
func (c Config) Enabled() []Type {
	var types []Type
	if c.GoogleSpreadsheetID != "" {
		types = append(types, SheetsPublisherType)
	}
	if c.AzureConnectionString != "" || c.AzureBlobServiceURL != "" {
		types = append(types, BlobPublisherType)
	}
	if c.AMQPURL != "" {
		types = append(types, AMQPPublisherType)
	}
	return types
}
