package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	router := gin.New()
	router.GET("/ws/questions/:topic", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		require.NoError(t, err)
		hub.RegisterClient(conn, c.Param("topic"))
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func dialFeed(t *testing.T, server *httptest.Server, topic string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/questions/" + topic
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFeedMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubBroadcastReachesSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := newFeedServer(t, hub)

	subscriber := dialFeed(t, server, "7")
	global := dialFeed(t, server, TopicAll)
	other := dialFeed(t, server, "9")

	require.Eventually(t, func() bool {
		return hub.ClientCount("") == 3
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastQuestion(7, EventVoteUpdated, map[string]int{"votes": 3})

	msg := readFeedMessage(t, subscriber)
	assert.Equal(t, EventVoteUpdated, msg.Type)
	assert.Equal(t, "7", msg.Topic)

	msg = readFeedMessage(t, global)
	assert.Equal(t, EventVoteUpdated, msg.Type)

	// The client on another question sees nothing.
	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestHubPing(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := newFeedServer(t, hub)
	conn := dialFeed(t, server, "1")

	require.Eventually(t, func() bool {
		return hub.ClientCount("1") == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))

	msg := readFeedMessage(t, conn)
	assert.Equal(t, "pong", msg.Type)
}

func TestHubResubscribe(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := newFeedServer(t, hub)
	conn := dialFeed(t, server, "1")

	require.Eventually(t, func() bool {
		return hub.ClientCount("1") == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Message{Type: "subscribe", Topic: "2"}))

	require.Eventually(t, func() bool {
		return hub.ClientCount("2") == 1
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastQuestion(2, EventAnswerSubmitted, nil)

	msg := readFeedMessage(t, conn)
	assert.Equal(t, EventAnswerSubmitted, msg.Type)
	assert.Equal(t, "2", msg.Topic)
}
