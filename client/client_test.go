package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/MaTriXy/wasync/request"
)

func TestFactoryCreatesIndependentClients(t *testing.T) {
	upgrader := gorilla.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	req, err := request.NewBuilder().
		URI(srv.URL).
		Transport(request.WebSocket).
		Build()
	require.NoError(t, err)

	factory := NewFactory(req)
	a := factory.Create()
	b := factory.Create()

	sa, err := a.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sa.Close() })

	sb, err := b.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sb.Close() })
}
