package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"isovoxel/internal/observerproto"
	"isovoxel/internal/sim/control"
	"isovoxel/internal/sim/voxel"
	"isovoxel/internal/sim/world"
	"isovoxel/internal/sim/world/visibility"
)

const (
	defaultMaxVoxels = 20000
	maxMaxVoxels     = 200000
)

type Params struct {
	BlockSize float64
	Viewport  [2]int
	FrameHz   int
}

// Server streams visible sets to remote viewers and accepts remote key
// state from sessions that subscribe with control.
type Server struct {
	world  *world.World
	keys   *control.KeySet
	params Params
	log    *log.Logger

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	id        string
	out       chan []byte
	maxVoxels int
	control   bool
	lastSeq   uint64
}

// NewServer wires remote KEYS into keys, which the frame loop reads as its
// control.Input. keys may be nil to ignore remote input.
func NewServer(w *world.World, keys *control.KeySet, p Params, logger *log.Logger) *Server {
	return &Server{
		world:  w,
		keys:   keys,
		params: p,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: map[string]*session{},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		sx, sy, sz := s.world.Grid().Size()
		palette := make([]string, 0, len(voxel.All()))
		for _, t := range voxel.All() {
			palette = append(palette, t.String())
		}
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			WorldID:         s.world.ID(),
			Digest:          world.FormatDigest(s.world.Digest()),
			WorldParams: observerproto.WorldParams{
				Size:      [3]int{sx, sy, sz},
				Seed:      s.world.Seed(),
				BlockSize: s.params.BlockSize,
				Viewport:  s.params.Viewport,
				FrameHz:   s.params.FrameHz,
			},
			VoxelPalette: palette,
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sess := &session{
			id:        "O-" + uuid.NewString(),
			out:       make(chan []byte, 8),
			maxVoxels: normalizeMaxVoxels(sub.MaxVoxels),
			control:   sub.Control,
		}
		s.mu.Lock()
		s.sessions[sess.id] = sess
		s.mu.Unlock()
		if s.log != nil {
			s.log.Printf("observer %s subscribed control=%v", sess.id, sess.control)
		}
		defer s.leave(sess)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: SUBSCRIBE updates and KEYS.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			s.handleClientMsg(sess, msg)
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) handleClientMsg(sess *session, msg []byte) {
	var base struct {
		Type            string `json:"type"`
		ProtocolVersion string `json:"protocol_version"`
	}
	if err := json.Unmarshal(msg, &base); err != nil || base.ProtocolVersion != observerproto.Version {
		return
	}
	switch base.Type {
	case observerproto.TypeSubscribe:
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			return
		}
		s.mu.Lock()
		sess.maxVoxels = normalizeMaxVoxels(sub.MaxVoxels)
		if sess.control && !sub.Control {
			s.releaseKeysLocked()
		}
		sess.control = sub.Control
		// Force a full draw list with the new limit.
		sess.lastSeq = 0
		s.mu.Unlock()
	case observerproto.TypeKeys:
		var k observerproto.KeysMsg
		if err := json.Unmarshal(msg, &k); err != nil {
			return
		}
		s.mu.Lock()
		allowed := sess.control
		s.mu.Unlock()
		if allowed && s.keys != nil {
			s.keys.Store(k.Up, k.Down, k.Left, k.Right)
		}
	}
}

func (s *Server) leave(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.id)
	if sess.control {
		s.releaseKeysLocked()
	}
	if s.log != nil {
		s.log.Printf("observer %s left", sess.id)
	}
}

func (s *Server) releaseKeysLocked() {
	if s.keys != nil {
		s.keys.Store(false, false, false, false)
	}
}

// Sessions reports how many observers are subscribed.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Publish fans one frame out to every session. Slow sessions drop frames.
func (s *Server) Publish(st world.FrameStats, set *visibility.Set) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) == 0 || set == nil {
		return
	}

	base := observerproto.FrameMsg{
		Type:            observerproto.TypeFrame,
		ProtocolVersion: observerproto.Version,
		Frame:           st.Frame,
		Seq:             set.Seq,
		Viewpoint:       [3]float64{st.Viewpoint.X(), st.Viewpoint.Y(), st.Viewpoint.Z()},
		Viewport:        [2]int{set.Width, set.Height},
		Recomputed:      st.Recomputed,
		Total:           len(set.Voxels),
	}
	var light []byte
	full := map[int][]byte{}
	for _, sess := range s.sessions {
		var b []byte
		if sess.lastSeq == set.Seq {
			if light == nil {
				light, _ = json.Marshal(base)
			}
			b = light
		} else {
			b = full[sess.maxVoxels]
			if b == nil {
				b = encodeFull(base, set, sess.maxVoxels)
				full[sess.maxVoxels] = b
			}
		}
		select {
		case sess.out <- b:
			sess.lastSeq = set.Seq
		default:
		}
	}
}

func encodeFull(base observerproto.FrameMsg, set *visibility.Set, limit int) []byte {
	n := len(set.Voxels)
	if n > limit {
		n = limit
		base.Truncated = true
	}
	base.Voxels = make([]observerproto.DrawCmd, n)
	for i := 0; i < n; i++ {
		v := set.Voxels[i]
		base.Voxels[i] = observerproto.DrawCmd{X: v.ScreenX, Y: v.ScreenY, T: uint8(v.Type)}
	}
	b, _ := json.Marshal(base)
	return b
}

func normalizeMaxVoxels(n int) int {
	if n <= 0 {
		return defaultMaxVoxels
	}
	if n > maxMaxVoxels {
		return maxMaxVoxels
	}
	return n
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
