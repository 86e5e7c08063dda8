package publish

import (
	"context"
	"fmt"

	"rateios/internal/amqp"
	"rateios/internal/log"
	"rateios/internal/report"
	"rateios/internal/sheets"
)

// SheetsPublisher mirrors the grouped view into one tab.
type SheetsPublisher struct {
	writer sheets.TableWriter
	sheet  string
	logger *log.Logger
}

func NewSheetsPublisher(w sheets.TableWriter, sheet string, logger *log.Logger) *SheetsPublisher {
	return &SheetsPublisher{writer: w, sheet: sheet, logger: componentLogger(logger)}
}

func (p *SheetsPublisher) Name() string { return SheetsPublisherType.String() }

func (p *SheetsPublisher) Publish(ctx context.Context, r RunReport) error {
	ref, err := p.writer.ReplaceTable(ctx, p.sheet, report.GroupedTable(r.Grouped))
	if err != nil {
		return fmt.Errorf("replace sheet %s: %w", p.sheet, err)
	}
	p.logger.InfoContext(ctx, "Grouped view published to sheet",
		"sheet", p.sheet, "range", ref, log.FieldRows, len(r.Grouped))
	return nil
}

// Uploader stores local files remotely under a prefix.
type Uploader interface {
	UploadFiles(ctx context.Context, prefix string, paths []string) (map[string]string, error)
}

// BlobPublisher uploads every written workbook under the run id.
type BlobPublisher struct {
	uploader Uploader
	logger   *log.Logger
}

func NewBlobPublisher(u Uploader, logger *log.Logger) *BlobPublisher {
	return &BlobPublisher{uploader: u, logger: componentLogger(logger)}
}

func (p *BlobPublisher) Name() string { return BlobPublisherType.String() }

func (p *BlobPublisher) Publish(ctx context.Context, r RunReport) error {
	written := r.Summary.WrittenFiles()
	paths := make([]string, 0, len(written))
	for _, f := range written {
		paths = append(paths, f.Path)
	}
	if len(paths) == 0 {
		p.logger.WarnContext(ctx, "No workbooks to upload")
		return nil
	}

	locations, err := p.uploader.UploadFiles(ctx, r.Summary.RunID, paths)
	if r.Locations != nil {
		for path, loc := range locations {
			r.Locations[path] = loc
		}
	}
	if err != nil {
		return fmt.Errorf("upload workbooks: %w", err)
	}
	return nil
}

// Notifier announces a finished run.
type Notifier interface {
	PublishReportReady(ctx context.Context, msg *amqp.ReportReadyMessage) error
}

// AMQPPublisher sends a ReportReadyMessage for the run.
type AMQPPublisher struct {
	notifier Notifier
}

func NewAMQPPublisher(n Notifier) *AMQPPublisher {
	return &AMQPPublisher{notifier: n}
}

func (p *AMQPPublisher) Name() string { return AMQPPublisherType.String() }

func (p *AMQPPublisher) Publish(ctx context.Context, r RunReport) error {
	msg := amqp.NewReportReadyMessage(r.Summary, r.Locations)
	if err := p.notifier.PublishReportReady(ctx, msg); err != nil {
		return fmt.Errorf("notify report ready: %w", err)
	}
	return nil
}

func componentLogger(logger *log.Logger) *log.Logger {
	if logger == nil {
		logger = log.Discard()
	}
	return logger.WithComponent(log.ComponentPublish)
}
