// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publish announces stored stories on a NATS subject.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/pdiddy/goodnews-engine/internal/metrics"
	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "goodnews.stories.published"

const flushTimeout = 5 * time.Second

// defaultMaxPayload is the NATS server default, used when the connection
// does not report a limit.
const defaultMaxPayload = 1 << 20

// envelopeReserve covers the RunMessage fields around the story list.
const envelopeReserve = 256

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	MaxPayload() int64
	Drain() error
}

// StoryRef is the per-story part of a run notification.
type StoryRef struct {
	URL      string           `json:"url"`
	Title    string           `json:"title"`
	Category types.Category   `json:"category"`
	Score    float64          `json:"score"`
	Impact   types.ImpactTier `json:"impact"`
	ImageURL string           `json:"image_url,omitempty"`
	Summary  string           `json:"summary,omitempty"`
}

// RunMessage is one part of a run notification. Count is the number of
// stories in the whole run; a run too large for one message is split into
// Parts messages numbered from 1.
type RunMessage struct {
	RunID   string     `json:"run_id"`
	SentAt  time.Time  `json:"sent_at"`
	Count   int        `json:"count"`
	Part    int        `json:"part"`
	Parts   int        `json:"parts"`
	Stories []StoryRef `json:"stories"`
}

// NATS publishes run notifications over a core NATS connection.
type NATS struct {
	conn    conn
	subject string
	logger  zerolog.Logger
	now     func() time.Time
}

// NewNATS connects to cfg.NATSURL.
func NewNATS(cfg types.PublishConfig, logger zerolog.Logger) (*NATS, error) {
	if cfg.NATSURL == "" {
		return nil, fmt.Errorf("nats publisher requires a URL")
	}
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("goodnews-engine"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("reconnected to nats")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats connection lost")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return newNATS(nc, cfg.Subject, logger), nil
}

func newNATS(c conn, subject string, logger zerolog.Logger) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{conn: c, subject: subject, logger: logger, now: time.Now}
}

// PublishStories sends the run's stories as one or more RunMessages, each
// within the server's max payload, and waits for the server to acknowledge
// the flush or ctx to end.
func (n *NATS) PublishStories(ctx context.Context, runID string, stories []types.StoredStory) error {
	refs := make([]StoryRef, len(stories))
	for i, st := range stories {
		refs[i] = StoryRef{
			URL:      st.URL,
			Title:    st.Title,
			Category: st.Category,
			Score:    st.Score,
			Impact:   st.Impact,
			ImageURL: st.ImageURL,
			Summary:  st.Summary,
		}
	}

	parts, err := split(refs, n.maxPayload())
	if err != nil {
		return err
	}

	sentAt := n.now().UTC()
	for i, part := range parts {
		data, err := json.Marshal(RunMessage{
			RunID:   runID,
			SentAt:  sentAt,
			Count:   len(stories),
			Part:    i + 1,
			Parts:   len(parts),
			Stories: part,
		})
		if err != nil {
			return fmt.Errorf("encoding run message: %w", err)
		}
		if err := n.conn.Publish(n.subject, data); err != nil {
			metrics.NatsMessagesPublished.WithLabelValues(n.subject, "error").Inc()
			return fmt.Errorf("publishing part %d/%d to %s: %w", i+1, len(parts), n.subject, err)
		}
	}

	timeout := flushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if err := n.conn.FlushTimeout(timeout); err != nil {
		metrics.NatsMessagesPublished.WithLabelValues(n.subject, "error").Inc()
		return fmt.Errorf("flushing nats: %w", err)
	}

	metrics.NatsMessagesPublished.WithLabelValues(n.subject, "ok").Add(float64(len(parts)))
	n.logger.Debug().Str("subject", n.subject).Str("run_id", runID).
		Int("stories", len(stories)).Int("parts", len(parts)).Msg("published run")
	return nil
}

func (n *NATS) maxPayload() int {
	if m := n.conn.MaxPayload(); m > 0 {
		return int(m)
	}
	return defaultMaxPayload
}

// split packs refs in order into groups whose encoded size stays under
// limit. A ref too large on its own is sent without its summary. An empty
// run still yields one empty group.
func split(refs []StoryRef, limit int) ([][]StoryRef, error) {
	budget := limit - envelopeReserve
	parts := [][]StoryRef{{}}
	used := 0
	for _, ref := range refs {
		b, err := json.Marshal(ref)
		if err != nil {
			return nil, fmt.Errorf("encoding story %s: %w", ref.URL, err)
		}
		size := len(b) + 1
		if size > budget {
			ref.Summary = ""
			if b, err = json.Marshal(ref); err != nil {
				return nil, fmt.Errorf("encoding story %s: %w", ref.URL, err)
			}
			size = len(b) + 1
		}
		last := len(parts) - 1
		if used+size > budget && len(parts[last]) > 0 {
			parts = append(parts, nil)
			last++
			used = 0
		}
		parts[last] = append(parts[last], ref)
		used += size
	}
	return parts, nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
