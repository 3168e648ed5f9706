package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"watchparty/internal/core/domain"
	"watchparty/pkg/validation"
)

const typeField = "type"

// Codec converts envelopes to and from the flat JSON wire format
// {"type": KIND, ...payload fields} spoken by every peer.
type Codec struct {
	validator *validation.Validator
}

func NewCodec() *Codec {
	v := validation.NewValidator()
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("playerstate", func(fl validator.FieldLevel) bool {
		return domain.PlayerState(fl.Field().Int()).Valid()
	})
	return &Codec{validator: v}
}

// Encode flattens the payload and writes the wire kind.
func (c *Codec) Encode(e Envelope) ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("encode %s: nil payload", e.Kind)
	}
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind, err)
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind, err)
	}
	kind, _ := json.Marshal(e.WireKind())
	fields[typeField] = kind

	return json.Marshal(fields)
}

// Decode reads one wire message. Unknown kinds yield domain.ErrUnknownMessage
// and payloads failing validation yield a *validation.StructError.
func (c *Codec) Decode(data []byte) (Envelope, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Envelope{}, fmt.Errorf("decode message: %w", err)
	}

	base := head.Type.Base()
	factory, ok := registry[base]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %q", domain.ErrUnknownMessage, head.Type)
	}

	payload := factory()
	if err := json.Unmarshal(data, payload); err != nil {
		return Envelope{}, fmt.Errorf("decode %s: %w", head.Type, err)
	}
	if err := c.validator.Struct(payload); err != nil {
		return Envelope{}, fmt.Errorf("decode %s: %w", head.Type, err)
	}

	return Envelope{Kind: base, Request: head.Type.IsRequest(), Payload: payload}, nil
}
