package network

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

// transport carries envelopes over one client connection. Send may be called
// from several goroutines; Receive from one.
type transport interface {
	Send(msgType MsgType, payload interface{}) error
	Receive() (*Envelope, error)
	Close() error
	RemoteAddr() string
}

// tcpTransport frames envelopes with a length prefix.
type tcpTransport struct {
	conn net.Conn
	mu   sync.Mutex
}

func newTCPTransport(conn net.Conn) *tcpTransport {
	return &tcpTransport{conn: conn}
}

func (t *tcpTransport) Send(msgType MsgType, payload interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Encode(t.conn, msgType, payload)
}

func (t *tcpTransport) Receive() (*Envelope, error) {
	return Decode(t.conn)
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

func (t *tcpTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// wsTransport sends one envelope per text frame and keeps the connection
// alive with pings.
type wsTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
	done chan struct{}
	once sync.Once
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	t := &wsTransport{conn: conn, done: make(chan struct{})}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go t.pingLoop()
	return t
}

func (t *wsTransport) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := t.conn.WriteMessage(websocket.PingMessage, nil)
			t.mu.Unlock()
			if err != nil {
				return
			}
		case <-t.done:
			return
		}
	}
}

func (t *wsTransport) Send(msgType MsgType, payload interface{}) error {
	body, err := Marshal(msgType, payload)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, body)
}

func (t *wsTransport) Receive() (*Envelope, error) {
	_, body, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return Unmarshal(body)
}

func (t *wsTransport) Close() error {
	t.once.Do(func() { close(t.done) })
	return t.conn.Close()
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
