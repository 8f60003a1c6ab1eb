package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Notification is the raw inbound webhook message plus transport metadata. It
// exists only for the duration of request handling and is never persisted.
type Notification struct {
	ProviderCode string
	Body         []byte
	Headers      http.Header
	ReceivedAt   time.Time
	Payload      NotificationPayload
}

// NotificationPayload is the closed set of provider payload shapes, decoded
// once at the HTTP boundary. Dispatcher and recorder only ever see one of the
// concrete variants below.
type NotificationPayload interface {
	// EventType is the provider event normalized to a dotted namespace.
	EventType() string
	// ResourceID identifies the provider-side resource (payment id, event id)
	// for diagnostics and reconciliation.
	ResourceID() string
}

// StripePayload is the decoded shape of a Stripe event notification.
type StripePayload struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (p *StripePayload) EventType() string  { return p.Type }
func (p *StripePayload) ResourceID() string { return p.ID }

// ParseStripePayload decodes a Stripe notification body.
func ParseStripePayload(body []byte) (*StripePayload, error) {
	var p StripePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("malformed stripe payload: %w", err)
	}
	if p.ID == "" || p.Type == "" {
		return nil, fmt.Errorf("malformed stripe payload: missing id or type")
	}
	return &p, nil
}

// PayPalPayload is the decoded shape of a PayPal webhook event.
type PayPalPayload struct {
	ID        string          `json:"id"`
	EventName string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

func (p *PayPalPayload) EventType() string  { return strings.ToLower(p.EventName) }
func (p *PayPalPayload) ResourceID() string { return p.ID }

// ParsePayPalPayload decodes a PayPal notification body.
func ParsePayPalPayload(body []byte) (*PayPalPayload, error) {
	var p PayPalPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("malformed paypal payload: %w", err)
	}
	if p.ID == "" || p.EventName == "" {
		return nil, fmt.Errorf("malformed paypal payload: missing id or event_type")
	}
	return &p, nil
}

// MercadoPagoPayload is the thin-pointer shape of a Mercado Pago notification:
// a topic and a resource id, nothing else. The full resource is fetched after
// verification.
type MercadoPagoPayload struct {
	Topic  string
	Action string
	DataID string
}

func (p *MercadoPagoPayload) EventType() string {
	if p.Action != "" {
		return p.Action
	}
	return p.Topic + ".notification"
}
func (p *MercadoPagoPayload) ResourceID() string { return p.DataID }

// ParseMercadoPagoPayload decodes a Mercado Pago notification. The resource id
// regularly arrives in the body as data.id but some notification modes put it
// in the query string instead, so both are accepted.
func ParseMercadoPagoPayload(body []byte, query url.Values) (*MercadoPagoPayload, error) {
	var raw struct {
		Type   string `json:"type"`
		Action string `json:"action"`
		Data   struct {
			ID json.RawMessage `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("malformed mercadopago payload: %w", err)
	}
	p := &MercadoPagoPayload{Topic: raw.Type, Action: raw.Action, DataID: flexibleID(raw.Data.ID)}
	if p.DataID == "" {
		p.DataID = query.Get("data.id")
	}
	if p.Topic == "" {
		p.Topic = query.Get("type")
	}
	if p.Topic == "" || p.DataID == "" {
		return nil, fmt.Errorf("malformed mercadopago payload: missing type or data.id")
	}
	return p, nil
}

// flexibleID decodes a resource id that providers send either as a JSON
// number or as an alphanumeric string.
func flexibleID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// PayUPayload is the decoded shape of a PayU confirmation, posted as an HTML
// form rather than JSON.
type PayUPayload struct {
	MerchantID    string
	ReferenceSale string
	Value         string
	Currency      string
	StatePol      string
	Sign          string
	TransactionID string
}

var payuStates = map[string]string{
	"4":   "payment.approved",
	"5":   "payment.expired",
	"6":   "payment.declined",
	"7":   "payment.pending",
	"104": "payment.error",
}

func (p *PayUPayload) EventType() string {
	if t, ok := payuStates[p.StatePol]; ok {
		return t
	}
	return "payment.unknown"
}
func (p *PayUPayload) ResourceID() string { return p.ReferenceSale }

// ParsePayUPayload decodes a PayU confirmation form. The signed fields and the
// signature itself are mandatory; a confirmation without them cannot be
// legitimate.
func ParsePayUPayload(form url.Values) (*PayUPayload, error) {
	p := &PayUPayload{
		MerchantID:    form.Get("merchant_id"),
		ReferenceSale: form.Get("reference_sale"),
		Value:         form.Get("value"),
		Currency:      form.Get("currency"),
		StatePol:      form.Get("state_pol"),
		Sign:          form.Get("sign"),
		TransactionID: form.Get("transaction_id"),
	}
	if p.MerchantID == "" || p.ReferenceSale == "" || p.Value == "" || p.Currency == "" || p.StatePol == "" || p.Sign == "" {
		return nil, fmt.Errorf("malformed payu confirmation: missing signed fields")
	}
	return p, nil
}

// MetaPayload is the decoded shape of a Meta platform notification.
type MetaPayload struct {
	Object  string      `json:"object"`
	Entries []MetaEntry `json:"entry"`
}

// MetaEntry is one changed object inside a Meta notification batch.
type MetaEntry struct {
	ID      string `json:"id"`
	Time    int64  `json:"time"`
	Changes []struct {
		Field string          `json:"field"`
		Value json.RawMessage `json:"value"`
	} `json:"changes"`
}

func (p *MetaPayload) EventType() string {
	if len(p.Entries) > 0 && len(p.Entries[0].Changes) > 0 {
		return p.Object + "." + p.Entries[0].Changes[0].Field
	}
	return p.Object + ".update"
}

func (p *MetaPayload) ResourceID() string {
	if len(p.Entries) > 0 {
		return p.Entries[0].ID
	}
	return ""
}

// ParseMetaPayload decodes a Meta notification body.
func ParseMetaPayload(body []byte) (*MetaPayload, error) {
	var p MetaPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("malformed meta payload: %w", err)
	}
	if p.Object == "" || len(p.Entries) == 0 {
		return nil, fmt.Errorf("malformed meta payload: missing object or entry")
	}
	return &p, nil
}
