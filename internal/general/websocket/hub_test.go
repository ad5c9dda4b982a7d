package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valet/internal/domain/user"
	"valet/internal/general/contracts"
	"valet/internal/general/jwt"
	"valet/internal/general/logger"
)

func newHubServer(t *testing.T) (*Hub, *jwt.Manager, string) {
	t.Helper()
	mgr := jwt.NewManager("test-secret", time.Hour)
	hub := NewHub(logger.Nop(), mgr, WithAuthTimeout(time.Second))
	mux := http.NewServeMux()
	hub.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return hub, mgr, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialAndAuth(t *testing.T, url, token string) (*websocket.Conn, contracts.WSAuthResult) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": "Bearer " + token}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var res contracts.WSAuthResult
	require.NoError(t, conn.ReadJSON(&res))
	return conn, res
}

func TestDriverReceivesOwnChannelOnly(t *testing.T) {
	hub, mgr, base := newHubServer(t)
	d1, _, err := mgr.IssueUserToken("D1", user.RoleDriver)
	require.NoError(t, err)

	conn, res := dialAndAuth(t, base+"/ws/driver/D1", d1)
	require.Equal(t, "auth_success", res.Type)
	assert.Equal(t, "driver:D1", res.Channel)
	assert.Equal(t, 1, hub.Subscribers(contracts.DriverChannel("D1")))

	require.NoError(t, hub.Deliver(context.Background(), contracts.DriverChannel("D2"), "recall-request", []byte(`{"n":0}`)))
	require.NoError(t, hub.Deliver(context.Background(), contracts.DriverChannel("D1"), "recall-request", []byte(`{"n":1}`)))

	var frame contracts.WSFrame
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "recall-request", frame.Type)
	assert.Equal(t, "driver:D1", frame.Channel)
	assert.JSONEq(t, `{"n":1}`, string(frame.Data))
}

func TestDriverPathMustMatchSubject(t *testing.T) {
	hub, mgr, base := newHubServer(t)
	d1, _, err := mgr.IssueUserToken("D1", user.RoleDriver)
	require.NoError(t, err)

	_, res := dialAndAuth(t, base+"/ws/driver/D2", d1)
	assert.Equal(t, "auth_error", res.Type)
	assert.Equal(t, 0, hub.Subscribers(contracts.DriverChannel("D2")))
}

func TestCustomerSubscribesByPhone(t *testing.T) {
	hub, mgr, base := newHubServer(t)
	tok, _, err := mgr.IssueCustomerToken("C1", "9000000001")
	require.NoError(t, err)

	conn, res := dialAndAuth(t, base+"/ws/customer", tok)
	require.Equal(t, "auth_success", res.Type)

	require.NoError(t, hub.Deliver(context.Background(), contracts.CustomerChannel("9000000001"), "car-arrived", []byte(`{"otp":"000042"}`)))

	var frame contracts.WSFrame
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "car-arrived", frame.Type)

	var data map[string]string
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, "000042", data["otp"])
}

func TestRoleIsEnforcedPerEndpoint(t *testing.T) {
	_, mgr, base := newHubServer(t)
	d1, _, err := mgr.IssueUserToken("D1", user.RoleDriver)
	require.NoError(t, err)

	_, res := dialAndAuth(t, base+"/ws/supervisor", d1)
	assert.Equal(t, "auth_error", res.Type)

	_, res = dialAndAuth(t, base+"/ws/customer", d1)
	assert.Equal(t, "auth_error", res.Type)
}

func TestSupervisorsFanOutAndUnsubscribe(t *testing.T) {
	hub, mgr, base := newHubServer(t)
	sup, _, err := mgr.IssueUserToken("S1", user.RoleSupervisor)
	require.NoError(t, err)
	adm, _, err := mgr.IssueUserToken("A1", user.RoleAdmin)
	require.NoError(t, err)

	c1, _ := dialAndAuth(t, base+"/ws/supervisor", sup)
	c2, _ := dialAndAuth(t, base+"/ws/supervisor", adm)
	require.Equal(t, 2, hub.Subscribers(contracts.Supervisors))

	require.NoError(t, hub.Deliver(context.Background(), contracts.Supervisors, "new-booking", []byte(`{}`)))
	for _, c := range []*websocket.Conn{c1, c2} {
		var frame contracts.WSFrame
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, c.ReadJSON(&frame))
		assert.Equal(t, "new-booking", frame.Type)
	}

	require.NoError(t, c1.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	assert.Eventually(t, func() bool { return hub.Subscribers(contracts.Supervisors) == 1 },
		2*time.Second, 10*time.Millisecond)
}

func TestPingPongAndNoSubscribers(t *testing.T) {
	hub, mgr, base := newHubServer(t)
	require.NoError(t, hub.Deliver(context.Background(), contracts.Supervisors, "x", []byte(`{}`)))

	sup, _, err := mgr.IssueUserToken("S1", user.RoleSupervisor)
	require.NoError(t, err)
	conn, _ := dialAndAuth(t, base+"/ws/supervisor", sup)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	var reply map[string]string
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "pong", reply["type"])
}
