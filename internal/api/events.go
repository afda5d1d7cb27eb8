package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dep2p/go-reachability/internal/core/eventbus"
	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
	"github.com/dep2p/go-reachability/pkg/types"
)

const (
	eventWriteTimeout = 5 * time.Second
	eventPingInterval = 30 * time.Second
	eventBufferSize   = 64
)

var eventUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(r.Host), strings.TrimSpace(u.Host))
	},
}

// EventView 推送给客户端的状态变化
type EventView struct {
	ID        string              `json:"id"`
	Host      string              `json:"host"`
	Status    types.NetworkStatus `json:"status"`
	Flags     uint32              `json:"flags"`
	FlagNames string              `json:"flag_names"`
	Sequence  uint64              `json:"sequence"`
	Timestamp time.Time           `json:"timestamp"`
}

func eventViewOf(evt pkgif.EvtReachabilityStateChanged) EventView {
	view := EventView{
		Host:      evt.HostName,
		Status:    evt.Status,
		Flags:     uint32(evt.Flags),
		FlagNames: evt.Flags.String(),
		Sequence:  evt.Sequence,
		Timestamp: evt.Timestamp,
	}
	if evt.Observer != nil {
		view.ID = evt.Observer.ID()
	}
	return view
}

// handleEvents 把总线上的状态变化以 JSON 帧推送到 websocket
//
// 可选查询参数 host 只推送该主机的事件。
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !s.trackStream() {
		writeError(w, http.StatusServiceUnavailable, "server is stopping")
		return
	}
	defer s.wg.Done()

	filter := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(r.URL.Query().Get("host")), "."))

	// 先订阅再升级，避免握手完成后漏掉事件
	sub, err := s.bus.Subscribe(new(pkgif.EvtReachabilityStateChanged), eventbus.BufSize(eventBufferSize))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	conn, err := eventUpgrader.Upgrade(w, r, nil)
	if err != nil {
		_ = sub.Close()
		return
	}

	s.serveEvents(conn, sub, filter)
}

func (s *Server) serveEvents(conn *websocket.Conn, sub pkgif.Subscription, filter string) {
	defer conn.Close()
	defer sub.Close()

	logger.Debug("事件流已连接", "remote", conn.RemoteAddr().String(), "host", filter)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventPingInterval)
	defer ping.Stop()

	for {
		select {
		case raw, ok := <-sub.Out():
			if !ok {
				return
			}
			evt, ok := raw.(pkgif.EvtReachabilityStateChanged)
			if !ok {
				continue
			}
			if filter != "" && evt.HostName != filter {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteJSON(eventViewOf(evt)); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteTimeout)); err != nil {
				return
			}
		case <-done:
			return
		case <-s.ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
				time.Now().Add(eventWriteTimeout))
			return
		}
	}
}
