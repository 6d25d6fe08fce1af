package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rubiojr/turnsearch/pkg/log"
	"github.com/rubiojr/turnsearch/pkg/metrics"
	"github.com/rubiojr/turnsearch/pkg/realtime"
	"github.com/rubiojr/turnsearch/pkg/render"
	"github.com/rubiojr/turnsearch/pkg/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 8192
)

// liveConn binds one websocket to one session. The read loop turns client
// messages into session calls; the write loop pushes the session state
// whenever it changes.
type liveConn struct {
	id   string
	conn *websocket.Conn
	sess *session.Session
	log  *log.Logger

	// ctx is cancelled when the connection closes, aborting in-flight
	// backend requests.
	ctx    context.Context
	cancel context.CancelFunc

	wmu sync.Mutex
}

// HandleLive upgrades the request and serves a live search session until
// the client disconnects.
func (s *Server) HandleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.log.Warnf("live upgrade failed: %v", err)
		return
	}

	up := s.Upstream()
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	lc := &liveConn{
		id:     id,
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		log:    log.ForService("live"),
		sess: session.New(up.Backend, session.Options{
			Delay: up.Delay,
			Clock: s.clock,
			Clean: s.clean,
		}),
	}

	s.track(lc)
	metrics.SessionOpened()
	defer func() {
		s.untrack(lc)
		metrics.SessionClosed()
	}()

	lc.log.Debugf("session %s opened from %s", id, r.RemoteAddr)
	lc.run()
	lc.log.Debugf("session %s closed", id)
}

func (lc *liveConn) run() {
	ctx := lc.ctx
	defer lc.sess.Close()

	// Reading starts before the initial load so a client that leaves while
	// the upstream is slow cancels it. Messages wait for ready.
	var wg sync.WaitGroup
	ready := make(chan struct{})
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		lc.readLoop(ctx, &wg, ready)
		lc.close()
	}()

	if err := lc.sess.LoadCollections(ctx); err != nil && ctx.Err() == nil {
		_ = lc.sendError("collections are unavailable")
	}

	subID, events := lc.sess.Subscribe()
	done := make(chan struct{})
	go lc.writeLoop(events, done)
	close(ready)

	<-readDone
	wg.Wait()
	lc.sess.Unsubscribe(subID)
	<-done
}

func (lc *liveConn) readLoop(ctx context.Context, wg *sync.WaitGroup, ready <-chan struct{}) {
	lc.conn.SetReadLimit(maxMessageSize)
	_ = lc.conn.SetReadDeadline(time.Now().Add(pongWait))
	lc.conn.SetPongHandler(func(string) error {
		return lc.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := lc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				lc.log.Warnf("session %s: read: %v", lc.id, err)
			}
			return
		}

		select {
		case <-ready:
		case <-ctx.Done():
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = lc.sendError("malformed message")
			continue
		}
		lc.dispatch(ctx, wg, msg)
	}
}

func (lc *liveConn) dispatch(ctx context.Context, wg *sync.WaitGroup, msg ClientMessage) {
	switch msg.Type {
	case MessageInput:
		lc.sess.Input(msg.Text)
	case MessageSuggestion:
		lc.sess.SelectSuggestion(msg.Text)
	case MessageCollection:
		if err := lc.sess.SelectCollection(msg.ID); err != nil {
			_ = lc.sendError(err.Error())
		}
	case MessageSubmit:
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := lc.sess.Submit(ctx); err != nil && ctx.Err() == nil {
				_ = lc.sendError("search failed")
			}
		}()
	default:
		_ = lc.sendError("unknown message type " + msg.Type)
	}
}

// writeLoop sends the initial state, then the latest snapshot after each
// event that is newer than what was last sent.
func (lc *liveConn) writeLoop(events <-chan realtime.Event, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	sent, err := lc.pushState()
	if err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Revision <= sent {
				continue
			}
			rev, err := lc.pushState()
			if err != nil {
				lc.log.Debugf("session %s: write: %v", lc.id, err)
				return
			}
			sent = rev
		case <-ticker.C:
			if err := lc.writeControl(websocket.PingMessage); err != nil {
				return
			}
		}
	}
}

func (lc *liveConn) pushState() (uint64, error) {
	st := lc.sess.Snapshot()
	msg, err := NewStateMessage(st)
	if err != nil {
		lc.log.Errorf("session %s: rendering results: %v", lc.id, err)
		return st.Revision, lc.sendError("results could not be rendered")
	}
	return st.Revision, lc.send(msg)
}

// NewStateMessage converts a session state into its wire form with the
// results rendered as HTML.
func NewStateMessage(st session.State) (StateMessage, error) {
	html, err := render.HTML(render.View(st.Results))
	if err != nil {
		return StateMessage{}, err
	}
	return StateMessage{
		Type:        MessageState,
		Revision:    st.Revision,
		Term:        st.Term,
		Collection:  st.CurrentCollection,
		Collections: st.Collections,
		Suggestions: st.Suggestions,
		ResultsHTML: string(html),
		ResultCount: len(st.Results),
	}, nil
}

func (lc *liveConn) sendError(message string) error {
	return lc.send(ErrorMessage{Type: MessageError, Message: message})
}

func (lc *liveConn) send(v any) error {
	lc.wmu.Lock()
	defer lc.wmu.Unlock()
	_ = lc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return lc.conn.WriteJSON(v)
}

func (lc *liveConn) writeControl(messageType int) error {
	lc.wmu.Lock()
	defer lc.wmu.Unlock()
	return lc.conn.WriteControl(messageType, nil, time.Now().Add(writeWait))
}

func (lc *liveConn) close() {
	lc.cancel()
	_ = lc.conn.Close()
}
