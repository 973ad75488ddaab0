package messaging

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/scusemua/notebook-kernel/common/jupyter/types"
)

type SubscriptionKind int

const (
	Subscribe SubscriptionKind = iota
	Unsubscribe
)

// SubscriptionMessage is the frame a SUB socket sends to an XPUB when it (un)subscribes.
type SubscriptionMessage struct {
	Kind         SubscriptionKind
	Subscription string
}

// ParseSubscription decodes a subscription message. It is always a single frame whose first
// byte is 1 for subscribe and anything else for unsubscribe, followed by the UTF-8 topic.
func ParseSubscription(parts [][]byte) (*SubscriptionMessage, error) {
	if len(parts) != 1 {
		return nil, errors.Wrapf(types.ErrInvalidMessage, "subscription must be a single frame, got %d", len(parts))
	}

	frame := parts[0]
	if len(frame) == 0 {
		return nil, errors.Wrap(types.ErrInvalidMessage, "subscription frame is empty")
	}

	kind := Unsubscribe
	if frame[0] == 1 {
		kind = Subscribe
	}

	topic := frame[1:]
	if !utf8.Valid(topic) {
		return nil, errors.Wrapf(types.ErrUtf8, "subscription %q", topic)
	}

	return &SubscriptionMessage{Kind: kind, Subscription: string(topic)}, nil
}

func (m *SubscriptionMessage) String() string {
	if m.Kind == Subscribe {
		return fmt.Sprintf("subscribe(%q)", m.Subscription)
	}
	return fmt.Sprintf("unsubscribe(%q)", m.Subscription)
}
