/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package notifier posts orchestration reports to webhook subscribers.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hyperledger/aries-framework-go/component/log"
	spilog "github.com/hyperledger/aries-framework-go/spi/log"
)

const (
	// ReportTopic is the topic orchestration reports are published under.
	ReportTopic = "oob-orchestration"

	notificationSendTimeout = 10 * time.Second

	emptyTopicErrMsg   = "cannot notify with an empty topic"
	emptyMessageErrMsg = "cannot notify with an empty message"
)

// Notifier publishes messages under a topic.
type Notifier interface {
	Notify(ctx context.Context, topic string, message []byte) error
}

// HTTPNotifier is a webhook dispatcher capable of notifying multiple subscribers via HTTP.
type HTTPNotifier struct {
	urls   []string
	client *http.Client
	logger spilog.Logger
}

// Option configures an HTTPNotifier.
type Option func(n *HTTPNotifier)

// WithHTTPClient sets the client used to post notifications.
func WithHTTPClient(client *http.Client) Option {
	return func(n *HTTPNotifier) {
		n.client = client
	}
}

// WithLogger sets the notifier logger.
func WithLogger(logger spilog.Logger) Option {
	return func(n *HTTPNotifier) {
		n.logger = logger
	}
}

// NewHTTPNotifier returns a new instance of an HTTPNotifier.
func NewHTTPNotifier(webhookURLs []string, opts ...Option) *HTTPNotifier {
	n := &HTTPNotifier{
		urls:   webhookURLs,
		client: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.logger == nil {
		n.logger = log.New("aries-framework/oob-orchestrator/notifier")
	}

	return n
}

// Notify posts the message, wrapped in a topic envelope, to every subscriber. Every subscriber is tried;
// the errors of the failed ones are joined.
func (n *HTTPNotifier) Notify(ctx context.Context, topic string, message []byte) error {
	if topic == "" {
		return errors.New(emptyTopicErrMsg)
	}

	if len(message) == 0 {
		return errors.New(emptyMessageErrMsg)
	}

	topicMsg, err := PrepareTopicMessage(topic, message)
	if err != nil {
		return fmt.Errorf("failed to create topic message : %w", err)
	}

	var errs []error

	for _, webhookURL := range n.urls {
		if err := n.notifyWH(ctx, webhookURL, topicMsg); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// PrepareTopicMessage wraps a JSON message in the envelope subscribers receive.
func PrepareTopicMessage(topic string, message []byte) ([]byte, error) {
	topicMsg := struct {
		ID      string          `json:"id"`
		Topic   string          `json:"topic"`
		Message json.RawMessage `json:"message"`
	}{
		ID:      uuid.New().String(),
		Topic:   topic,
		Message: message,
	}

	return json.Marshal(topicMsg)
}

func (n *HTTPNotifier) notifyWH(ctx context.Context, destination string, message []byte) error {
	ctx, cancel := context.WithTimeout(ctx, notificationSendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewBuffer(message))
	if err != nil {
		return fmt.Errorf("failed to create new http post request for %s: %w", destination, err)
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post notification to %s: %w", destination, err)
	}

	defer n.closeResponse(resp.Body)

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		n.logger.Infof("Notification sent to %s successfully.", destination)

		return nil
	}

	return fmt.Errorf("notification was sent to %s, but %s was received", destination, resp.Status)
}

func (n *HTTPNotifier) closeResponse(c io.Closer) {
	if err := c.Close(); err != nil {
		n.logger.Errorf("Failed to close response body")
	}
}
