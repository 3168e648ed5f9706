package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"watchparty/internal/core/domain"
	"watchparty/pkg/validation"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrNoPage = errors.New("player page not connected")

// Page message types sent by the browser player page.
const (
	MsgPlayerReady  = "player_ready"
	MsgPlayerState  = "player_state"
	MsgPlayerError  = "player_error"
	MsgPlayerStatus = "player_status"
	MsgGesture      = "gesture"
	MsgVisibility   = "visibility"
)

// Command operations understood by the page.
const (
	OpLoad  = "load"
	OpPlay  = "play"
	OpPause = "pause"
	OpSeek  = "seek"
)

// PageMessage is one inbound message from the player page.
type PageMessage struct {
	Type     string  `json:"type" validate:"required,oneof=player_ready player_state player_error player_status gesture visibility"`
	State    *int    `json:"state,omitempty" validate:"required_if=Type player_state"`
	Code     int     `json:"code,omitempty" validate:"required_if=Type player_error"`
	VideoID  string  `json:"videoId,omitempty" validate:"max=64"`
	Title    string  `json:"title,omitempty" validate:"max=512"`
	Time     float64 `json:"time,omitempty" validate:"gte=0"`
	Duration float64 `json:"duration,omitempty" validate:"gte=0"`
	Hidden   bool    `json:"hidden,omitempty"`
}

// Command drives the page's embedded player.
type Command struct {
	Op             string  `json:"op"`
	VideoID        string  `json:"videoId,omitempty"`
	Time           float64 `json:"time,omitempty"`
	AllowSeekAhead bool    `json:"allowSeekAhead,omitempty"`
}

type commandMessage struct {
	Type string `json:"type"`
	Command
}

type noticeMessage struct {
	Type string `json:"type"`
	domain.Notice
}

// PageHandler receives what the connected page reports.
type PageHandler interface {
	HandlePageMessage(msg PageMessage)
	PageDisconnected()
}

type Config struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
	AllowedOrigins []string
}

// Bridge is the websocket link to the single browser page hosting the
// player. A newly connected page replaces the previous one.
type Bridge struct {
	config    Config
	upgrader  websocket.Upgrader
	validator *validation.Validator

	mu      sync.RWMutex
	page    *pageConn
	handler PageHandler

	logger *zap.SugaredLogger
}

type pageConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func NewBridge(config Config, logger *zap.SugaredLogger) *Bridge {
	b := &Bridge{
		config:    config,
		validator: validation.NewValidator(),
		logger:    logger,
	}
	b.upgrader = websocket.Upgrader{
		CheckOrigin:     b.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return b
}

func (b *Bridge) SetHandler(h PageHandler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// checkOrigin admits same-origin pages and the configured origins.
func (b *Bridge) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range b.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

func (b *Bridge) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.page != nil
}

func (b *Bridge) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	page := &pageConn{ws: ws}

	b.mu.Lock()
	previous := b.page
	b.page = page
	b.mu.Unlock()

	if previous != nil {
		b.logger.Infow("replacing previously connected player page")
		_ = previous.ws.Close()
	}
	b.logger.Infow("player page connected", "remote_addr", r.RemoteAddr)

	ws.SetReadLimit(b.config.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(b.config.PongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(b.config.PongTimeout))
	})

	pingTicker := time.NewTicker(b.config.PingInterval)
	defer pingTicker.Stop()

	messageChan := make(chan []byte, 16)
	errorChan := make(chan error, 1)

	go func() {
		defer close(messageChan)
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				errorChan <- err
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(b.config.PongTimeout))
			messageChan <- data
		}
	}()

loop:
	for {
		select {
		case data, ok := <-messageChan:
			if !ok {
				break loop
			}
			if err := b.handleMessage(data); err != nil {
				b.logger.Infow("rejected message from player page", "error", err)
				b.sendError(page, err.Error())
			}

		case <-pingTicker.C:
			if err := page.write(websocket.PingMessage, nil, b.config.WriteTimeout); err != nil {
				b.logger.Infow("error sending ping", "error", err)
				break loop
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Infow("error reading from player page", "error", err)
			}
			break loop
		}
	}

	_ = ws.Close()
	// drain so the reader goroutine can exit
	go func() {
		for range messageChan {
		}
	}()

	b.mu.Lock()
	current := b.page == page
	if current {
		b.page = nil
	}
	handler := b.handler
	b.mu.Unlock()

	if current && handler != nil {
		handler.PageDisconnected()
	}
	b.logger.Infow("player page disconnected", "replaced", !current)
}

func (b *Bridge) handleMessage(data []byte) error {
	var msg PageMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	if err := b.validator.Struct(msg); err != nil {
		return err
	}

	b.mu.RLock()
	handler := b.handler
	b.mu.RUnlock()
	if handler != nil {
		handler.HandlePageMessage(msg)
	}
	return nil
}

// SendCommand forwards a player command to the page.
func (b *Bridge) SendCommand(cmd Command) error {
	return b.send(commandMessage{Type: "command", Command: cmd})
}

// Notify implements ports.Notifier. Notices are dropped while no page is connected.
func (b *Bridge) Notify(n domain.Notice) {
	if err := b.send(noticeMessage{Type: "notice", Notice: n}); err != nil && !errors.Is(err, ErrNoPage) {
		b.logger.Warnw("failed to deliver notice", "kind", n.Kind, "error", err)
	}
}

func (b *Bridge) send(v interface{}) error {
	b.mu.RLock()
	page := b.page
	b.mu.RUnlock()
	if page == nil {
		return ErrNoPage
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return page.write(websocket.TextMessage, data, b.config.WriteTimeout)
}

func (b *Bridge) sendError(page *pageConn, message string) {
	data, _ := json.Marshal(map[string]string{"type": "error", "message": message})
	_ = page.write(websocket.TextMessage, data, b.config.WriteTimeout)
}

func (p *pageConn) write(messageType int, data []byte, timeout time.Duration) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.ws.SetWriteDeadline(time.Now().Add(timeout))
	return p.ws.WriteMessage(messageType, data)
}
