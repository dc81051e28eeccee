package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/khangpt2k6/bullroom/internal/fanout"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 4 << 10
)

// Observers is the hub surface used by the websocket route.
type Observers interface {
	Subscribe(rooms ...string) *fanout.Subscriber
	Count() int
}

type clientFrame struct {
	Action string `json:"action"`
	RoomID string `json:"roomId"`
}

type roomAck struct {
	RoomID string   `json:"roomId"`
	Rooms  []string `json:"rooms"`
}

type connectedAck struct {
	Rooms     []string  `json:"rooms"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleWebsocket upgrades the request and streams hub frames to the
// observer. The optional room query parameter may repeat.
func HandleWebsocket(hub Observers, origins []string, log *zap.Logger) http.HandlerFunc {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowed) == 0 {
				return true
			}
			if _, wildcard := allowed["*"]; wildcard {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		sub := hub.Subscribe(r.URL.Query()["room"]...)
		log.Debug("observer connected", zap.String("remote", r.RemoteAddr), zap.Int("observers", hub.Count()))
		sub.Send(fanout.Frame{
			Event: fanout.EventConnected,
			Data:  connectedAck{Rooms: sub.Rooms(), Timestamp: time.Now().UTC()},
		})

		done := make(chan struct{})
		go writeFrames(conn, sub, done, log)
		readFrames(conn, sub, log)
		sub.Close()
		<-done
		log.Debug("observer disconnected", zap.String("remote", r.RemoteAddr))
	}
}

// readFrames handles subscribe and unsubscribe requests until the
// connection fails or closes.
func readFrames(conn *websocket.Conn, sub *fanout.Subscriber, log *zap.Logger) {
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		var f clientFrame
		if err := json.Unmarshal(raw, &f); err != nil || f.RoomID == "" {
			continue
		}
		switch f.Action {
		case "subscribe":
			sub.Watch(f.RoomID)
			sub.Send(fanout.Frame{Event: fanout.EventSubscribed, Data: roomAck{RoomID: f.RoomID, Rooms: sub.Rooms()}})
		case "unsubscribe":
			sub.Unwatch(f.RoomID)
			sub.Send(fanout.Frame{Event: fanout.EventUnsubscribed, Data: roomAck{RoomID: f.RoomID, Rooms: sub.Rooms()}})
		}
	}
}

// writeFrames owns all writes on conn. It returns once the subscriber is
// closed or a write fails, and closes conn on the way out.
func writeFrames(conn *websocket.Conn, sub *fanout.Subscriber, done chan<- struct{}, log *zap.Logger) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		close(done)
	}()

	for {
		select {
		case f, ok := <-sub.Frames():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(f); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				sub.Close()
				drain(sub)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sub.Close()
				drain(sub)
				return
			}
		}
	}
}

func drain(sub *fanout.Subscriber) {
	for range sub.Frames() {
	}
}
