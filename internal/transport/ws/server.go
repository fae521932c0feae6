package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voxelrealm.gg/internal/protocol"
	"voxelrealm.gg/internal/sim/room"
)

// Server bridges websocket connections to a game room: one reader and
// one writer goroutine per connection, with the room's channels as the
// only shared surface.
type Server struct {
	room *room.Room
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(r *room.Room, logger *log.Logger) *Server {
	return &Server{
		room: r,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		playerID, out := s.handshake(conn)
		if playerID == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine: drains the session channel onto the socket.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: schema-validate and forward into the room inbox.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			if err := protocol.ValidateClient(msg); err != nil {
				continue
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type == protocol.TypeHello {
				continue
			}
			s.room.Inbox() <- room.Envelope{PlayerID: playerID, Type: base.Type, Raw: msg}
		}

		s.room.Leave() <- playerID
	}
}

// handshake runs the hello/welcome exchange. A connection that fails
// any step is closed with a policy code and never reaches the room.
func (s *Server) handshake(conn *websocket.Conn) (playerID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	if err := protocol.ValidateClient(msg); err != nil {
		closePolicy(conn, protocol.ErrProtoBadRequest)
		return "", nil
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(conn, protocol.ErrProtoBadRequest)
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closePolicy(conn, protocol.ErrProtoBadRequest)
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closePolicy(conn, protocol.ErrBadVersion)
		return "", nil
	}
	if hello.PlayerName == "" {
		hello.PlayerName = "adventurer"
	}

	out = make(chan []byte, 256)
	respCh := make(chan room.JoinResponse, 1)
	s.room.Join() <- room.JoinRequest{Name: hello.PlayerName, Out: out, Resp: respCh}
	resp := <-respCh
	if resp.Code != "" {
		closePolicy(conn, resp.Code)
		return "", nil
	}

	welcome := resp.Welcome
	welcome.SessionID = uuid.NewString()
	if err := writeJSON(conn, welcome); err != nil {
		s.room.Leave() <- welcome.PlayerID
		return "", nil
	}
	return welcome.PlayerID, out
}

func closePolicy(conn *websocket.Conn, code string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code),
		time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
