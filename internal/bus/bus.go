// Package bus carries scrape requests between the API surface and the
// workers over NATS. One subject, one queue group: any worker may pick up
// any request, and redelivery is safe because the pipeline is idempotent.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	// SubjectScrape carries on-demand scrape requests.
	SubjectScrape = "scrape.source"

	// queueGroup makes workers compete for requests instead of fanning out.
	queueGroup = "hareline-workers"

	connectTimeout = 2 * time.Minute
)

// ScrapeRequest asks a worker to scrape one source.
type ScrapeRequest struct {
	SourceID string `json:"source_id"`
	Days     int    `json:"days,omitempty"`
	Force    bool   `json:"force,omitempty"`
}

// Connect dials NATS with exponential backoff. Workers start alongside the
// broker in most deployments, so refusing to boot on a not-yet-ready broker
// would just turn races into crash loops.
func Connect(ctx context.Context, url string, log zerolog.Logger) (*nats.Conn, error) {
	var nc *nats.Conn

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = connectTimeout

	err := backoff.Retry(func() error {
		var err error
		nc, err = nats.Connect(url, nats.Name("hareline"))
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("nats connect failed, retrying")
		}
		return err
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}

	log.Info().Str("url", url).Msg("connected to nats")
	return nc, nil
}

// Publisher enqueues scrape requests.
type Publisher struct {
	nc *nats.Conn
}

func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// PublishScrape enqueues one request.
func (p *Publisher) PublishScrape(req ScrapeRequest) error {
	if req.SourceID == "" {
		return fmt.Errorf("scrape request has no source id")
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding scrape request: %w", err)
	}
	if err := p.nc.Publish(SubjectScrape, data); err != nil {
		return fmt.Errorf("publishing scrape request: %w", err)
	}
	return nil
}

// Subscribe attaches a handler to the scrape subject within the worker queue
// group. Undecodable messages are logged and dropped; there is nothing a
// retry would fix.
func Subscribe(nc *nats.Conn, log zerolog.Logger, handle func(ScrapeRequest)) (*nats.Subscription, error) {
	sub, err := nc.QueueSubscribe(SubjectScrape, queueGroup, func(msg *nats.Msg) {
		var req ScrapeRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject).Msg("dropping undecodable scrape request")
			return
		}
		if req.SourceID == "" {
			log.Error().Str("subject", msg.Subject).Msg("dropping scrape request with no source id")
			return
		}
		handle(req)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", SubjectScrape, err)
	}
	return sub, nil
}
