package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rateios/internal/amqp"
	"rateios/internal/blob"
	"rateios/internal/config"
	"rateios/internal/log"
	gsheet "rateios/internal/sheets/google"
)

// FromAppConfig converts the application config to publisher config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	return Config{
		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		GoogleSheetName:       appConfig.GoogleSheetName,
		AzureConnectionString: appConfig.AzureConnectionString,
		AzureBlobServiceURL:   appConfig.AzureBlobServiceURL,
		AzureBlobContainer:    appConfig.AzureBlobContainer,
		AMQPURL:               appConfig.AMQPURL,
		AMQPExchange:          appConfig.AMQPExchange,
		AMQPQueue:             appConfig.AMQPQueue,
	}, nil
}

// Factory builds the publishers a Config enables.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	return &Factory{logger: componentLogger(logger)}
}

// CreatePublishers connects every enabled publisher. A publisher that
// cannot be created fails the whole call and releases the ones already
// built.
func (f *Factory) CreatePublishers(ctx context.Context, cfg Config) (*Result, error) {
	res := &Result{}
	var cleanups []CleanupFunc
	cleanup := func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			errs = append(errs, cleanups[i]())
		}
		return errors.Join(errs...)
	}

	for _, t := range cfg.Enabled() {
		p, c, err := f.create(ctx, t, cfg)
		if err != nil {
			_ = cleanup()
			return nil, fmt.Errorf("create %s publisher: %w", t, err)
		}
		if c != nil {
			cleanups = append(cleanups, c)
		}
		res.Publishers = append(res.Publishers, p)
		f.logger.Info("Initialized publisher", log.FieldPublisher, t.String())
	}
	res.Cleanup = cleanup
	return res, nil
}

func (f *Factory) create(ctx context.Context, t Type, cfg Config) (Publisher, CleanupFunc, error) {
	switch t {
	case SheetsPublisherType:
		cli, err := gsheet.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, f.logger)
		if err != nil {
			return nil, nil, err
		}
		return NewSheetsPublisher(cli, cfg.GoogleSheetName, f.logger), nil, nil
	case BlobPublisherType:
		store, err := blob.New(blob.Options{
			ConnectionString: cfg.AzureConnectionString,
			ServiceURL:       cfg.AzureBlobServiceURL,
			Container:        cfg.AzureBlobContainer,
		}, f.logger)
		if err != nil {
			return nil, nil, err
		}
		return NewBlobPublisher(store, f.logger), nil, nil
	case AMQPPublisherType:
		client, err := amqp.Dial(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, amqp.DefaultDialAttempts, f.logger)
		if err != nil {
			return nil, nil, err
		}
		return NewAMQPPublisher(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported publisher type: %s", t)
	}
}

// Observer receives one outcome per publisher.
type Observer interface {
	ObservePublish(publisher string, ok bool)
}

// Set runs publishers in order.
type Set struct {
	publishers []Publisher
	observer   Observer
	logger     *log.Logger
}

func NewSet(publishers []Publisher, observer Observer, logger *log.Logger) *Set {
	return &Set{publishers: publishers, observer: observer, logger: componentLogger(logger)}
}

// Publish runs every publisher even when an earlier one fails and returns
// the joined failures.
func (s *Set) Publish(ctx context.Context, r RunReport) error {
	if r.Locations == nil {
		r.Locations = make(map[string]string)
	}
	var errs []error
	for _, p := range s.publishers {
		start := time.Now()
		err := p.Publish(ctx, r)
		if s.observer != nil {
			s.observer.ObservePublish(p.Name(), err == nil)
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "Publisher failed",
				log.NewFields().
					WithOperation(log.OpPublish).
					WithPublisher(p.Name()).
					WithError(err, "PUBLISH_FAILED").
					ToSlice()...)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		s.logger.InfoContext(ctx, "Publisher finished",
			log.FieldPublisher, p.Name(), log.FieldDuration, time.Since(start).Milliseconds())
	}
	return errors.Join(errs...)
}

// Len reports how many publishers the set runs.
func (s *Set) Len() int { return len(s.publishers) }
