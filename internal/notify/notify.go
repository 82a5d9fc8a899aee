package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/DaDevFox/task-systems/household-core/internal/kvstore"
)

// Notifier delivers one alert. A later call with the same kind supersedes
// the earlier one.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, count int) error
}

// Method names a delivery channel
type Method string

const (
	MethodLog    Method = "log"
	MethodInbox  Method = "inbox"
	MethodNtfy   Method = "ntfy"
	MethodGotify Method = "gotify"
)

// Config selects and configures delivery channels
type Config struct {
	Methods     []Method
	NtfyHost    string
	NtfyTopic   string
	GotifyURL   string
	GotifyToken string
}

// New builds a fan-out notifier for every configured method. The inbox
// method requires state.
func New(cfg Config, state kvstore.Store, logger *logrus.Logger) (*Multi, error) {
	if logger == nil {
		logger = logrus.New()
	}

	var targets []Notifier
	for _, method := range cfg.Methods {
		switch method {
		case MethodLog:
			targets = append(targets, NewLogNotifier(logger))
		case MethodInbox:
			if state == nil {
				return nil, errors.New("inbox notifications require a state store")
			}
			targets = append(targets, NewInboxNotifier(state))
		case MethodNtfy:
			if cfg.NtfyTopic == "" {
				return nil, errors.New("ntfy notifications require a topic")
			}
			targets = append(targets, NewNtfyNotifier(cfg.NtfyHost, cfg.NtfyTopic, logger))
		case MethodGotify:
			if cfg.GotifyURL == "" || cfg.GotifyToken == "" {
				return nil, errors.New("gotify notifications require a url and token")
			}
			targets = append(targets, NewGotifyNotifier(cfg.GotifyURL, cfg.GotifyToken))
		default:
			return nil, fmt.Errorf("unsupported notification method: %s", method)
		}
	}
	return NewMulti(logger, targets...), nil
}

// Multi sends every alert to all of its targets. A failing target does not
// stop the others.
type Multi struct {
	targets []Notifier
	logger  *logrus.Logger
}

// NewMulti creates a fan-out notifier
func NewMulti(logger *logrus.Logger, targets ...Notifier) *Multi {
	if logger == nil {
		logger = logrus.New()
	}
	return &Multi{targets: targets, logger: logger}
}

func (m *Multi) Notify(ctx context.Context, kind Kind, count int) error {
	var errs []error
	for _, target := range m.targets {
		if err := target.Notify(ctx, kind, count); err != nil {
			m.logger.WithError(err).WithFields(logrus.Fields{
				"kind":   kind.String(),
				"target": fmt.Sprintf("%T", target),
			}).Error("Failed to send notification")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of targets
func (m *Multi) Len() int {
	return len(m.targets)
}

// LogNotifier writes alerts to the log
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, kind Kind, count int) error {
	msg := Render(kind, count)
	n.logger.
		WithField("notification", true).
		WithField("kind", kind.String()).
		WithField("count", count).
		Info(msg.Title + ": " + msg.Text)
	return nil
}

// NtfyNotifier posts alerts to an ntfy topic. ntfy has no way to replace an
// earlier message, so every call publishes a new one tagged with the kind
// name. Only InboxNotifier replaces alerts by kind.
type NtfyNotifier struct {
	host   string
	topic  string
	client *http.Client
	logger *logrus.Logger
}

// NewNtfyNotifier creates an ntfy sender. An empty host means ntfy.sh.
// Hosts without a scheme are reached over http.
func NewNtfyNotifier(host, topic string, logger *logrus.Logger) *NtfyNotifier {
	if host == "" {
		host = "ntfy.sh"
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return &NtfyNotifier{
		host:   strings.TrimSuffix(host, "/"),
		topic:  topic,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (n *NtfyNotifier) Notify(ctx context.Context, kind Kind, count int) error {
	msg := Render(kind, count)
	url := fmt.Sprintf("%s/%s", n.host, n.topic)
	n.logger.WithFields(logrus.Fields{
		"url":     url,
		"message": msg.Text,
	}).Debug("Sending ntfy notification")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(msg.Text))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Title", msg.Title)
	req.Header.Set("Tags", kind.String())

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy request failed with status %s", resp.Status)
	}
	return nil
}

// gotifyMessage is the body of POST /message. Extras carry the stable kind ID
// so clients can group or collapse alerts of one kind.
type gotifyMessage struct {
	Title   string                    `json:"title"`
	Message string                    `json:"message"`
	Extras  map[string]map[string]any `json:"extras,omitempty"`
}

// GotifyNotifier posts alerts to a Gotify server. Gotify stores every message
// separately, so repeated alerts of one kind appear as separate messages
// sharing the same household::alert kind extra.
type GotifyNotifier struct {
	url    string
	token  string
	client *http.Client
}

func NewGotifyNotifier(url, token string) *GotifyNotifier {
	return &GotifyNotifier{
		url:    strings.TrimSuffix(url, "/"),
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *GotifyNotifier) Notify(ctx context.Context, kind Kind, count int) error {
	msg := Render(kind, count)
	data, err := json.Marshal(gotifyMessage{
		Title:   msg.Title,
		Message: msg.Text,
		Extras: map[string]map[string]any{
			"household::alert": {"kind": int(kind), "name": kind.String()},
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/message?token=%s", n.url, n.token), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gotify request failed with status %s", resp.Status)
	}
	return nil
}
