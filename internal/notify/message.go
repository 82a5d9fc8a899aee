package notify

import (
	"fmt"
	"strconv"
)

// Kind identifies one alert category. Each kind has a stable ID so a newer
// alert of the same kind replaces the previous one instead of stacking.
type Kind int

const (
	KindLowStock Kind = 1
	KindExpiry   Kind = 2
	KindWarranty Kind = 3
)

// Kinds lists every alert kind in delivery order
var Kinds = []Kind{KindLowStock, KindExpiry, KindWarranty}

func (k Kind) String() string {
	switch k {
	case KindLowStock:
		return "low_stock"
	case KindExpiry:
		return "expiry"
	case KindWarranty:
		return "warranty"
	default:
		return "unknown"
	}
}

// Message is the rendered text of one alert
type Message struct {
	Kind  Kind
	Title string
	Text  string
}

// Render builds the user facing title and text for count items of kind
func Render(kind Kind, count int) Message {
	msg := Message{Kind: kind}
	switch kind {
	case KindLowStock:
		msg.Title = "Low Stock Alert"
		if count == 1 {
			msg.Text = "1 item is running low on stock"
		} else {
			msg.Text = fmt.Sprintf("%d items are running low on stock", count)
		}
	case KindExpiry:
		msg.Title = "Items Expiring Soon"
		if count == 1 {
			msg.Text = "1 item expires within 7 days"
		} else {
			msg.Text = fmt.Sprintf("%d items expire within 7 days", count)
		}
	case KindWarranty:
		msg.Title = "Warranties Expiring Soon"
		if count == 1 {
			msg.Text = "1 item warranty expires within 30 days"
		} else {
			msg.Text = fmt.Sprintf("%d item warranties expire within 30 days", count)
		}
	default:
		msg.Title = "Inventory Alert"
		msg.Text = fmt.Sprintf("%d items need attention", count)
	}
	return msg
}

// ParseKind maps a kind name or numeric ID to a Kind
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if s == k.String() || s == strconv.Itoa(int(k)) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown alert kind: %q", s)
}
