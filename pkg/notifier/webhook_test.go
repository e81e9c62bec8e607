/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type topicMessage struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message"`
}

func TestNotify(t *testing.T) {
	t.Run("posts to every subscriber", func(t *testing.T) {
		var (
			mu       sync.Mutex
			received []topicMessage
		)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))

			b, err := io.ReadAll(r.Body)
			require.NoError(t, err)

			var msg topicMessage
			require.NoError(t, json.Unmarshal(b, &msg))

			mu.Lock()
			received = append(received, msg)
			mu.Unlock()

			w.WriteHeader(http.StatusOK)
		})

		srv1 := httptest.NewServer(handler)
		defer srv1.Close()

		srv2 := httptest.NewServer(handler)
		defer srv2.Close()

		n := NewHTTPNotifier([]string{srv1.URL, srv2.URL}, WithHTTPClient(srv1.Client()))

		require.NoError(t, n.Notify(context.Background(), ReportTopic, []byte(`{"outcome":"connected"}`)))
		require.Len(t, received, 2)

		for _, msg := range received {
			require.NotEmpty(t, msg.ID)
			require.Equal(t, ReportTopic, msg.Topic)
			require.JSONEq(t, `{"outcome":"connected"}`, string(msg.Message))
		}
	})

	t.Run("collects every failure", func(t *testing.T) {
		ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))
		defer ok.Close()

		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer failing.Close()

		n := NewHTTPNotifier([]string{failing.URL, ok.URL, "http://localhost:0"})

		err := n.Notify(context.Background(), ReportTopic, []byte(`{}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "500 Internal Server Error was received")
		require.Contains(t, err.Error(), "failed to post notification to http://localhost:0")
		require.Len(t, strings.Split(err.Error(), "\n"), 2)
	})

	t.Run("empty topic", func(t *testing.T) {
		err := NewHTTPNotifier(nil).Notify(context.Background(), "", []byte(`{}`))
		require.EqualError(t, err, emptyTopicErrMsg)
	})

	t.Run("empty message", func(t *testing.T) {
		err := NewHTTPNotifier(nil).Notify(context.Background(), ReportTopic, nil)
		require.EqualError(t, err, emptyMessageErrMsg)
	})

	t.Run("invalid message", func(t *testing.T) {
		err := NewHTTPNotifier(nil).Notify(context.Background(), ReportTopic, []byte("not json"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create topic message")
	})

	t.Run("invalid url", func(t *testing.T) {
		err := NewHTTPNotifier([]string{"%%"}).Notify(context.Background(), ReportTopic, []byte(`{}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create new http post request")
	})
}
