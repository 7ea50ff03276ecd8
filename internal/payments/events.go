package payments

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedEvent marks a payload the provider should not redeliver.
var ErrMalformedEvent = errors.New("malformed payment event")

// Kind classifies a provider webhook event. Unknown kinds are logged and
// safely ignored instead of being accessed optimistically.
type Kind string

const (
	KindActivationPaid  Kind = "activation.paid"
	KindTokenPurchase   Kind = "tokens.purchased"
	KindContractFeePaid Kind = "contract_fee.paid"
	KindEscrowCaptured  Kind = "escrow.captured"
	KindEscrowRefunded  Kind = "escrow.refunded"
	KindUnknown         Kind = "unknown"
)

// Event is one provider payment event. Delivery is at-least-once and
// unordered; IntentReference is the idempotency key.
type Event struct {
	Kind            Kind
	IntentReference string
	AmountCents     int64
	UserID          string
	ContractID      string
}

// envelope is the wire shape of a provider webhook payload.
type envelope struct {
	Type        string `json:"type"`
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount_cents"`
	Metadata    struct {
		UserID     string `json:"user_id"`
		ContractID string `json:"contract_id"`
	} `json:"metadata"`
}

// ParseEvent decodes a raw webhook payload into a typed event. A payload
// with an unrecognized type parses into KindUnknown; a payload without a
// provider reference is malformed.
func ParseEvent(payload []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedEvent, err)
	}
	if env.Reference == "" {
		return nil, fmt.Errorf("%w: missing provider reference", ErrMalformedEvent)
	}

	kind := KindUnknown
	switch Kind(env.Type) {
	case KindActivationPaid, KindTokenPurchase, KindContractFeePaid,
		KindEscrowCaptured, KindEscrowRefunded:
		kind = Kind(env.Type)
	}

	return &Event{
		Kind:            kind,
		IntentReference: env.Reference,
		AmountCents:     env.AmountCents,
		UserID:          env.Metadata.UserID,
		ContractID:      env.Metadata.ContractID,
	}, nil
}
