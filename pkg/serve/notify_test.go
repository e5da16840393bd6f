package serve

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/moonrailgun/reqcraft/pkg/model"
)

func TestNotifyBroadcastsReloadToConnectedClients(t *testing.T) {
	s := newTestServer(&model.ApiModel{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, resp, err := ws.Dial(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	defer conn.Close(ws.StatusNormalClosure, "test done")

	// Give the server a moment to register the connection before the
	// reload is broadcast, matching the teacher's async-registration
	// assumption in its own websocket integration tests.
	time.Sleep(20 * time.Millisecond)

	s.Swap(&model.ApiModel{Endpoints: []model.Endpoint{{ID: "a"}}})

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg notifyMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, "reload", msg.Type)
}

func TestNotifyBroadcastsErrorOnFailedRebuild(t *testing.T) {
	s := newTestServer(&model.ApiModel{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, resp, err := ws.Dial(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	defer conn.Close(ws.StatusNormalClosure, "test done")

	time.Sleep(20 * time.Millisecond)

	s.ReportBuildError(errTest{"parse failed"})

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg notifyMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, "error", msg.Type)
	require.Equal(t, "parse failed", msg.Message)
}

type errTest struct{ s string }

func (e errTest) Error() string { return e.s }

func TestNotifyDisconnectsClientExceedingPendingBudget(t *testing.T) {
	s := newTestServer(&model.ApiModel{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, resp, err := ws.Dial(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	defer conn.Close(ws.StatusNormalClosure, "test done")

	time.Sleep(20 * time.Millisecond)

	// Never read from conn: the outbox fills past maxPendingNotifications
	// and the server must close the connection rather than block.
	for i := 0; i < maxPendingNotifications+5; i++ {
		s.Swap(&model.ApiModel{})
	}

	readCtx, readCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer readCancel()
	// Notifications written before the overflow was detected still arrive
	// ahead of the close frame; read past them to the close.
	for err == nil {
		_, _, err = conn.Read(readCtx)
	}
	require.Error(t, err)
	require.Equal(t, ws.StatusPolicyViolation, ws.CloseStatus(err))
}
