package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/zbxport/internal/events"
)

const (
	// catchUpEvents is how many buffered events a new stream client gets
	// before live ones.
	catchUpEvents = 50

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Access is checked by RequireAnyRole before the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// eventFilter reads ?operation= and ?prefix= so a client can follow a
// single export or import, or one family of events.
func eventFilter(r *http.Request) events.Filter {
	q := r.URL.Query()
	return events.Filter{
		OperationID: q.Get("operation"),
		Prefix:      q.Get("prefix"),
	}
}

// eventStream is one WebSocket client following the event stream.
type eventStream struct {
	conn *websocket.Conn
	sub  *events.Subscription
}

func (s *eventStream) send(e events.Event) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(e)
}

func (s *eventStream) ping() error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *eventStream) close() {
	events.Unsubscribe(s.sub)
	s.conn.Close()
}

// readLoop consumes pongs and returns once the peer goes away.
func (s *eventStream) readLoop(done chan<- struct{}) {
	defer close(done)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// wsEventsHandler streams the events matching the request's filter: the
// most recent buffered ones first, then every new one.
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		events.Logger().Warn("ws upgrade failed", "error", err)
		return
	}

	f := eventFilter(r)
	// Subscribe before catching up so nothing emitted in between is lost.
	s := &eventStream{conn: conn, sub: events.Subscribe(f)}
	defer s.close()

	for _, e := range events.RecentEvents(catchUpEvents, f) {
		if err := s.send(e); err != nil {
			events.Logger().Debug("ws catch-up failed", "error", err)
			return
		}
	}

	done := make(chan struct{})
	go s.readLoop(done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case e, ok := <-s.sub.C:
			if !ok {
				return
			}
			if err := s.send(e); err != nil {
				events.Logger().Debug("ws send failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := s.ping(); err != nil {
				return
			}
		}
	}
}
