package ws

import "encoding/json"

// Message types.
const (
	TypeSubscribe        = "subscribe"
	TypeUnsubscribe      = "unsubscribe"
	TypeSubscribed       = "subscribed"
	TypeUnsubscribed     = "unsubscribed"
	TypeAnalyticsUpdated = "analytics_updated"
	TypeError            = "error"
)

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON captures the raw payload alongside the type.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// SubscribeMsg asks for (or cancels) updates about one game.
type SubscribeMsg struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
}

// SubscribedMsg acknowledges a subscription change.
type SubscribedMsg struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
}

// AnalyticsUpdatedMsg carries fresh analytics after new draws were imported.
type AnalyticsUpdatedMsg struct {
	Type      string `json:"type"`
	GameID    string `json:"game_id"`
	Analytics any    `json:"analytics"`
}

// ErrorMsg is sent when a client message is invalid.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
