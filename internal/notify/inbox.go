package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/DaDevFox/task-systems/household-core/internal/kvstore"
)

const inboxBucket = "alerts"

// Alert is an undismissed notification kept in the inbox
type Alert struct {
	Kind     Kind      `json:"kind"`
	Title    string    `json:"title"`
	Text     string    `json:"text"`
	Count    int       `json:"count"`
	RaisedAt time.Time `json:"raised_at"`
}

// InboxNotifier keeps the latest alert of each kind in a state store, for
// clients that poll instead of receiving pushes
type InboxNotifier struct {
	state kvstore.Store
	now   func() time.Time
}

func NewInboxNotifier(state kvstore.Store) *InboxNotifier {
	return &InboxNotifier{state: state, now: time.Now}
}

func inboxKey(kind Kind) string {
	return strconv.Itoa(int(kind))
}

func (n *InboxNotifier) Notify(ctx context.Context, kind Kind, count int) error {
	msg := Render(kind, count)
	alert := Alert{
		Kind:     kind,
		Title:    msg.Title,
		Text:     msg.Text,
		Count:    count,
		RaisedAt: n.now(),
	}
	return kvstore.PutJSON(ctx, n.state, inboxBucket, inboxKey(kind), alert)
}

// Latest returns the current alerts ordered by kind
func (n *InboxNotifier) Latest(ctx context.Context) ([]Alert, error) {
	entries, err := n.state.List(ctx, inboxBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	alerts := make([]Alert, 0, len(entries))
	for _, entry := range entries {
		var alert Alert
		if err := json.Unmarshal(entry.Value, &alert); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert %s: %w", entry.Key, err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// Dismiss removes the alert of kind; dismissing an absent alert is not an error
func (n *InboxNotifier) Dismiss(ctx context.Context, kind Kind) error {
	return n.state.Delete(ctx, inboxBucket, inboxKey(kind))
}
