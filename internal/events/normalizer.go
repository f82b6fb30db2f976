package events

import (
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Notification is the normalized view of one webhook delivery: which resource
// changed and what happened to it.
type Notification struct {
	NotificationType string `json:"notificationType,omitempty"`
	ResourceTypeID   string `json:"resourceTypeId"`
	ResourceID       string `json:"resourceId"`
	EventType        string `json:"eventType"`
	ResourceVersion  int64  `json:"resourceVersion,omitempty"`
}

var (
	idPattern   = regexp.MustCompile(`"id"\s*:\s*"([^"]+)"`)
	typePattern = regexp.MustCompile(`"type"\s*:\s*"([^"]+)"`)
)

// Normalize extracts a Notification from any of the known transport
// envelopes: Pub/Sub base64 payloads, CloudEvents, nested {data: …} wrappers,
// and direct JSON events. Delivery is fire-and-forget from the sender's side,
// so an unparsable body yields nil rather than an error; failing the HTTP
// request would only trigger blind redelivery.
func Normalize(body []byte) *Notification {
	payload, rawText := unwrap(body)

	notification := extract(payload)
	if notification.incomplete() {
		fillFromRawText(&notification, rawText)
	}

	if notification.ResourceID == "" || notification.EventType == "" {
		return nil
	}
	return &notification
}

func (n *Notification) incomplete() bool {
	return n.ResourceTypeID == "" || n.ResourceID == "" || n.EventType == ""
}

// unwrap tries each envelope strategy in priority order and returns the inner
// payload object plus the raw text used for last-resort extraction.
func unwrap(body []byte) (map[string]interface{}, string) {
	if payload, raw, ok := unwrapPubSub(body); ok {
		return payload, raw
	}
	if payload, raw, ok := unwrapCloudEvent(body); ok {
		return payload, raw
	}

	var outer map[string]interface{}
	if err := json.Unmarshal(body, &outer); err != nil {
		return nil, string(body)
	}

	if data, ok := outer["data"].(map[string]interface{}); ok {
		return data, string(body)
	}
	return outer, string(body)
}

// unwrapPubSub decodes a Pub/Sub push envelope ({"message":{"data":base64}})
// or a bare base64 data field. A decode that is not JSON is kept as raw text.
func unwrapPubSub(body []byte) (map[string]interface{}, string, bool) {
	var outer map[string]interface{}
	if err := json.Unmarshal(body, &outer); err != nil {
		return nil, "", false
	}

	encoded := ""
	if message, ok := outer["message"].(map[string]interface{}); ok {
		encoded, _ = message["data"].(string)
	} else if data, ok := outer["data"].(string); ok {
		encoded = data
	}
	if encoded == "" {
		return nil, "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", false
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, string(decoded), true
	}
	return payload, string(decoded), true
}

// unwrapCloudEvent parses a structured-mode CloudEvent and descends into its
// data payload.
func unwrapCloudEvent(body []byte) (map[string]interface{}, string, bool) {
	event := cloudevents.NewEvent()
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, "", false
	}
	if event.SpecVersion() == "" || len(event.Data()) == 0 {
		return nil, "", false
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(event.Data(), &payload); err != nil {
		return nil, string(event.Data()), true
	}
	return payload, string(event.Data()), true
}

// extract reads the (resourceType, resourceId, eventType) tuple out of a
// payload. Three discriminated shapes are known; anything else falls back to
// a best-effort union of every field name seen across them.
func extract(payload map[string]interface{}) Notification {
	if payload == nil {
		return Notification{}
	}

	n := Notification{
		NotificationType: stringField(payload, "notificationType"),
		ResourceVersion:  intField(payload, "resourceVersion"),
	}

	switch n.NotificationType {
	case "Message":
		n.ResourceTypeID = nestedStringField(payload, "resource", "typeId")
		n.ResourceID = nestedStringField(payload, "resource", "id")
		n.EventType = stringField(payload, "type")
	case "Change":
		n.ResourceTypeID = stringField(payload, "resourceTypeId")
		n.ResourceID = stringField(payload, "resourceId")
		n.EventType = firstStringField(payload, "changeType", "type")
	case "Event":
		n.ResourceTypeID = stringField(payload, "resourceType")
		n.ResourceID = stringField(payload, "resourceId")
		n.EventType = stringField(payload, "type")
	default:
		n.ResourceTypeID = firstOf(
			nestedStringField(payload, "resource", "typeId"),
			stringField(payload, "resourceTypeId"),
			stringField(payload, "resourceType"),
			stringField(payload, "typeId"),
		)
		n.ResourceID = firstOf(
			nestedStringField(payload, "resource", "id"),
			stringField(payload, "resourceId"),
			stringField(payload, "id"),
		)
		n.EventType = firstStringField(payload, "type", "changeType", "eventType")
	}

	return n
}

// fillFromRawText is the last resort: scrape an "id" and a "type" field out
// of the raw decoded text. An event name that looks product-shaped implies
// the product resource type.
func fillFromRawText(n *Notification, rawText string) {
	if rawText == "" {
		return
	}
	if n.ResourceID == "" {
		if m := idPattern.FindStringSubmatch(rawText); m != nil {
			n.ResourceID = m[1]
		}
	}
	if n.EventType == "" {
		if m := typePattern.FindStringSubmatch(rawText); m != nil {
			n.EventType = m[1]
		}
	}
	if n.ResourceTypeID == "" && strings.HasPrefix(n.EventType, "Product") {
		n.ResourceTypeID = "product"
	}
}

func stringField(payload map[string]interface{}, key string) string {
	value, _ := payload[key].(string)
	return value
}

func firstStringField(payload map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if value := stringField(payload, key); value != "" {
			return value
		}
	}
	return ""
}

func nestedStringField(payload map[string]interface{}, outer, inner string) string {
	nested, _ := payload[outer].(map[string]interface{})
	if nested == nil {
		return ""
	}
	return stringField(nested, inner)
}

func intField(payload map[string]interface{}, key string) int64 {
	if value, ok := payload[key].(float64); ok {
		return int64(value)
	}
	return 0
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
