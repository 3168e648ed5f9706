package protocol

// Envelope is the decoded form of one data channel message.
// Kind is always the base kind; Request marks the REQUEST_ variant.
type Envelope struct {
	Kind    Kind
	Request bool
	Payload Payload
}

// New wraps a payload as a plain (host-authoritative) message.
func New(p Payload) Envelope {
	return Envelope{Kind: p.Kind(), Payload: p}
}

// AsRequest returns the guest-originated variant of e.
func (e Envelope) AsRequest() Envelope {
	e.Request = true
	return e
}

// Resolved drops the request marker, as the host does before rebroadcasting.
func (e Envelope) Resolved() Envelope {
	e.Request = false
	return e
}

// WireKind is the value written to the "type" field.
func (e Envelope) WireKind() Kind {
	if e.Request {
		return e.Kind.Request()
	}
	return e.Kind
}
