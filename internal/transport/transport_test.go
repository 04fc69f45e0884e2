package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestConnRoundTripsFrames(t *testing.T) {
	var serverConn *Conn
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConn = NewConn(ws, nil)
	}))
	defer srv.Close()

	wsURL := "ws" + srv.URL[len("http"):]
	clientWs, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer clientWs.Close()

	time.Sleep(50 * time.Millisecond)
	require.NotNil(t, serverConn)

	require.NoError(t, serverConn.Send([]byte("hello")))

	clientWs.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := clientWs.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)

	var gotConnected bool
	for i := 0; i < 2; i++ {
		select {
		case ev := <-serverConn.Events:
			if ev.Kind == EventConnected {
				gotConnected = true
			}
		case <-time.After(time.Second):
		}
	}
	require.True(t, gotConnected)
}
