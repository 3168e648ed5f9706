package domain

type ConnectionState string

const (
	ConnectionNew          ConnectionState = "new"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionFailed       ConnectionState = "failed"
	ConnectionClosed       ConnectionState = "closed"
)

// Terminal reports whether the link cannot recover without renegotiation.
func (s ConnectionState) Terminal() bool {
	return s == ConnectionFailed || s == ConnectionClosed
}

type ChannelState string

const (
	ChannelConnecting ChannelState = "connecting"
	ChannelOpen       ChannelState = "open"
	ChannelClosed     ChannelState = "closed"
)

type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
)

type ElectionPhase string

const (
	ElectionIdle         ElectionPhase = "idle"
	ElectionPromoting    ElectionPhase = "promoting"
	ElectionAwaitingHost ElectionPhase = "awaiting_host"
	ElectionAborted      ElectionPhase = "aborted"
)

type ConnectionStatus string

const (
	StatusWaiting      ConnectionStatus = "waiting"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusElecting     ConnectionStatus = "electing"
)
