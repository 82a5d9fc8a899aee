package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaDevFox/task-systems/household-core/internal/kvstore"
)

func TestRender(t *testing.T) {
	tests := []struct {
		kind      Kind
		count     int
		wantTitle string
		wantText  string
	}{
		{KindLowStock, 1, "Low Stock Alert", "1 item is running low on stock"},
		{KindLowStock, 3, "Low Stock Alert", "3 items are running low on stock"},
		{KindExpiry, 1, "Items Expiring Soon", "1 item expires within 7 days"},
		{KindExpiry, 2, "Items Expiring Soon", "2 items expire within 7 days"},
		{KindWarranty, 1, "Warranties Expiring Soon", "1 item warranty expires within 30 days"},
		{KindWarranty, 4, "Warranties Expiring Soon", "4 item warranties expire within 30 days"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			msg := Render(tt.kind, tt.count)
			assert.Equal(t, tt.kind, msg.Kind)
			assert.Equal(t, tt.wantTitle, msg.Title)
			assert.Equal(t, tt.wantText, msg.Text)
		})
	}
}

func TestKindIDsAreStable(t *testing.T) {
	assert.Equal(t, 1, int(KindLowStock))
	assert.Equal(t, 2, int(KindExpiry))
	assert.Equal(t, 3, int(KindWarranty))
	assert.Equal(t, []Kind{KindLowStock, KindExpiry, KindWarranty}, Kinds)
}

func TestLogNotifier(t *testing.T) {
	logger, hook := test.NewNullLogger()

	require.NoError(t, NewLogNotifier(logger).Notify(context.Background(), KindExpiry, 2))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "expiry", entry.Data["kind"])
	assert.Equal(t, 2, entry.Data["count"])
	assert.Contains(t, entry.Message, "2 items expire within 7 days")
}

func TestNtfyNotifier(t *testing.T) {
	var (
		mu      sync.Mutex
		path    string
		title   string
		tags    string
		payload string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		path, title, tags, payload = r.URL.Path, r.Header.Get("Title"), r.Header.Get("Tags"), string(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	n := NewNtfyNotifier(server.URL, "household", logger)
	require.NoError(t, n.Notify(context.Background(), KindLowStock, 2))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/household", path)
	assert.Equal(t, "Low Stock Alert", title)
	assert.Equal(t, "low_stock", tags)
	assert.Equal(t, "2 items are running low on stock", payload)
}

func TestNtfyNotifierReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	err := NewNtfyNotifier(server.URL, "household", logger).Notify(context.Background(), KindExpiry, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGotifyNotifier(t *testing.T) {
	var received struct {
		Title   string                    `json:"title"`
		Message string                    `json:"message"`
		Extras  map[string]map[string]any `json:"extras"`
	}
	var token string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.URL.Query().Get("token")
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, NewGotifyNotifier(server.URL+"/", "secret").Notify(context.Background(), KindWarranty, 1))
	assert.Equal(t, "secret", token)
	assert.Equal(t, "Warranties Expiring Soon", received.Title)
	assert.Equal(t, "1 item warranty expires within 30 days", received.Message)
	require.Contains(t, received.Extras, "household::alert")
	assert.Equal(t, float64(KindWarranty), received.Extras["household::alert"]["kind"])
	assert.Equal(t, "warranty", received.Extras["household::alert"]["name"])
}

func newTestState(t *testing.T) kvstore.Store {
	t.Helper()
	state, err := kvstore.New(filepath.Join(t.TempDir(), "state"), kvstore.TypeBolt)
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })
	return state
}

func TestInboxNotifierReplacesByKind(t *testing.T) {
	ctx := context.Background()
	inbox := NewInboxNotifier(newTestState(t))
	raised := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	inbox.now = func() time.Time { return raised }

	require.NoError(t, inbox.Notify(ctx, KindExpiry, 3))
	require.NoError(t, inbox.Notify(ctx, KindLowStock, 1))
	require.NoError(t, inbox.Notify(ctx, KindExpiry, 1))

	alerts, err := inbox.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, KindLowStock, alerts[0].Kind)
	assert.Equal(t, KindExpiry, alerts[1].Kind)
	assert.Equal(t, 1, alerts[1].Count)
	assert.Equal(t, "1 item expires within 7 days", alerts[1].Text)
	assert.True(t, raised.Equal(alerts[1].RaisedAt))

	require.NoError(t, inbox.Dismiss(ctx, KindExpiry))
	require.NoError(t, inbox.Dismiss(ctx, KindWarranty))

	alerts, err = inbox.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, KindLowStock, alerts[0].Kind)
}

type recordingNotifier struct {
	calls []Kind
	err   error
}

func (r *recordingNotifier) Notify(ctx context.Context, kind Kind, count int) error {
	r.calls = append(r.calls, kind)
	return r.err
}

func TestMultiDeliversToEveryTarget(t *testing.T) {
	logger, hook := test.NewNullLogger()
	failing := &recordingNotifier{err: errors.New("unreachable")}
	working := &recordingNotifier{}

	err := NewMulti(logger, failing, working).Notify(context.Background(), KindWarranty, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
	assert.Equal(t, []Kind{KindWarranty}, failing.calls)
	assert.Equal(t, []Kind{KindWarranty}, working.calls)
	assert.Len(t, hook.AllEntries(), 1)
}

func TestNew(t *testing.T) {
	logger, _ := test.NewNullLogger()
	state := newTestState(t)

	tests := []struct {
		name    string
		cfg     Config
		state   kvstore.Store
		want    int
		wantErr string
	}{
		{"log only", Config{Methods: []Method{MethodLog}}, nil, 1, ""},
		{"log and inbox", Config{Methods: []Method{MethodLog, MethodInbox}}, state, 2, ""},
		{"inbox without state", Config{Methods: []Method{MethodInbox}}, nil, 0, "state store"},
		{"ntfy without topic", Config{Methods: []Method{MethodNtfy}}, nil, 0, "topic"},
		{"gotify without token", Config{Methods: []Method{MethodGotify}, GotifyURL: "http://gotify"}, nil, 0, "token"},
		{"unknown method", Config{Methods: []Method{"pager"}}, nil, 0, "unsupported"},
		{"none", Config{}, nil, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			multi, err := New(tt.cfg, tt.state, logger)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), tt.wantErr), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, multi.Len())
		})
	}
}
