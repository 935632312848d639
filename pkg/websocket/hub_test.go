package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newFeedServer(t *testing.T, hub *Hub, userType string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/feed", func(c *gin.Context) {
		c.Set("user_id", primitive.NewObjectID())
		c.Set("user_type", userType)
		c.Next()
	}, NewHandler(hub, nil).HandleWebSocket)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestModeratorsReceiveBroadcasts(t *testing.T) {
	hub := NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dial(t, newFeedServer(t, hub, "admin"))
	if msg := readMessage(t, conn); msg.Type != "welcome" {
		t.Fatalf("expected welcome, got %s", msg.Type)
	}
	if hub.RoomSize(RoomModerators) != 1 {
		t.Fatalf("expected the admin to join the moderators room")
	}

	err := hub.Broadcast(Message{Type: "offer.approve", RoomID: RoomModerators, Data: map[string]string{"to_status": "approved"}})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Type != "offer.approve" || msg.RoomID != RoomModerators {
		t.Fatalf("expected offer.approve for moderators, got %+v", msg)
	}
}

func TestDriversDoNotJoinModeratorsRoom(t *testing.T) {
	hub := NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dial(t, newFeedServer(t, hub, "driver"))
	readMessage(t, conn)

	if hub.ClientCount() != 1 || hub.RoomSize(RoomModerators) != 0 {
		t.Fatalf("expected 1 client outside the moderators room, got %d clients and room size %d",
			hub.ClientCount(), hub.RoomSize(RoomModerators))
	}
}

func TestPingGetsPong(t *testing.T) {
	hub := NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dial(t, newFeedServer(t, hub, "admin"))
	readMessage(t, conn)

	if err := conn.WriteJSON(Message{Type: "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != "pong" {
		t.Fatalf("expected pong, got %s", msg.Type)
	}
}

func TestBroadcastAfterShutdown(t *testing.T) {
	hub := NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	for i := 0; i < 300; i++ {
		if err := hub.Broadcast(Message{Type: "offer.publish"}); err != nil {
			return
		}
	}
	t.Fatal("expected broadcasts to fail once the hub stopped")
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://admin.example.com"})

	req := httptest.NewRequest("GET", "/feed", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	if !check(req) {
		t.Fatalf("expected the configured origin to pass")
	}

	req.Header.Set("Origin", "https://evil.example.com")
	if check(req) {
		t.Fatalf("expected an unknown origin to be refused")
	}
}
