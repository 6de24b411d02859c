package server

import (
	"sync"

	"github.com/gorilla/websocket"
)

// wsTransport writes outbound frames to one websocket connection. The
// mutex guards gorilla's single-writer requirement; each call performs
// exactly one write.
type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) SendMessage(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (t *wsTransport) SendError(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, []byte("[error] "+text))
}
