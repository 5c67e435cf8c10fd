package client

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slatehq/slate/pkg/types"
)

// fakeTransport answers every request with a scripted triple and keeps the
// last request for inspection.
type fakeTransport struct {
	conn     *Connection
	lastURL  string
	lastBody []byte
	calls    int

	status  Status
	headers map[string]string
	body    []byte
	err     error
}

func (f *fakeTransport) Request(_ *Connection, rawURL string, body []byte) (Status, map[string]string, []byte, error) {
	f.calls++
	f.lastURL = rawURL
	f.lastBody = append([]byte(nil), body...)
	return f.status, f.headers, f.body, f.err
}

func (f *fakeTransport) Connection() (*Connection, error) {
	if f.conn == nil {
		f.conn = NewConnection()
	}
	return f.conn, nil
}

func newTestClient(t *testing.T, ft *fakeTransport) *APIClient {
	t.Helper()
	cli, err := NewClient(&Options{
		ServerURL:  "http://tracking.local:8080",
		ScriptName: "harness",
		APIKey:     "secret",
		Transport:  ft,
	})
	require.NoError(t, err)
	return cli
}

func decodeEnvelope(t *testing.T, body []byte) (string, []json.RawMessage) {
	t.Helper()
	var env struct {
		MethodName string            `json:"method_name"`
		Params     []json.RawMessage `json:"params"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	return env.MethodName, env.Params
}

func TestNewClient_DefaultTransport(t *testing.T) {
	cli, err := NewClient(&Options{ServerURL: "http://localhost:8080"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPTransport{}, cli.Transport())
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(&Options{ServerURL: "://nope"})
	require.Error(t, err)
}

func TestFindOne_EnvelopeShape(t *testing.T) {
	ft := &fakeTransport{status: OK, body: []byte(`{"results":null}`)}
	cli := newTestClient(t, ft)
	require.NoError(t, cli.SetSessionUUID("550e8400-e29b-41d4-a716-446655440000"))

	entity, err := cli.FindOne(context.Background(), types.TypeProject,
		[]types.Filter{types.Eq("name", "Proj")}, []string{"name"})
	require.NoError(t, err)
	assert.Nil(t, entity, "null results read as a miss")

	assert.Equal(t, "http://tracking.local:8080/api3/json", ft.lastURL)

	method, params := decodeEnvelope(t, ft.lastBody)
	assert.Equal(t, "find_one", method)
	require.Len(t, params, 2)

	var auth map[string]string
	require.NoError(t, json.Unmarshal(params[0], &auth))
	assert.Equal(t, "harness", auth["script_name"])
	assert.Equal(t, "secret", auth["script_key"])
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", auth["session_uuid"])

	assert.JSONEq(t, `{"type":"Project","filters":[["name","is","Proj"]],"fields":["name"]}`,
		string(params[1]))
}

func TestCreate_DecodesResult(t *testing.T) {
	ft := &fakeTransport{status: OK, body: []byte(`{"results":{"id":12,"name":"Proj","type":"Project"}}`)}
	cli := newTestClient(t, ft)

	entity, err := cli.Create(context.Background(), types.TypeProject,
		types.Entity{"name": "Proj"}, []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, 12, entity.ID())
	assert.Equal(t, "Project", entity.Type())

	method, params := decodeEnvelope(t, ft.lastBody)
	assert.Equal(t, "create", method)
	assert.JSONEq(t, `{"type":"Project","fields":{"name":"Proj"},"return_fields":["name"]}`,
		string(params[len(params)-1]))
}

func TestCall_EmptyBodyIsMiss(t *testing.T) {
	ft := &fakeTransport{status: OK}
	cli := newTestClient(t, ft)

	entity, err := cli.FindOne(context.Background(), types.TypeShot, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, entity)
}

func TestCall_ErrorStatus(t *testing.T) {
	ft := &fakeTransport{
		status: Status{Code: 401, Reason: "Unauthorized"},
		body:   []byte(`{"message":"script authentication failed"}`),
	}
	cli := newTestClient(t, ft)

	_, err := cli.FindOne(context.Background(), types.TypeShot, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script authentication failed")
	assert.Contains(t, err.Error(), "401")
}

func TestCall_CanceledContext(t *testing.T) {
	ft := &fakeTransport{status: OK}
	cli := newTestClient(t, ft)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cli.FindOne(ctx, types.TypeShot, nil, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ft.calls, "canceled calls must not reach the transport")
}

func TestSetSessionUUID(t *testing.T) {
	cli := newTestClient(t, &fakeTransport{status: OK})

	require.Error(t, cli.SetSessionUUID("not-a-uuid"))
	require.NoError(t, cli.SetSessionUUID("550e8400-e29b-41d4-a716-446655440000"))
	require.NoError(t, cli.SetSessionUUID(""), "empty clears the session")
}

func TestInfo_NegotiatesCaps(t *testing.T) {
	ft := &fakeTransport{status: OK, body: []byte(`{"results":{"version":[2,4,0]}}`)}
	cli := newTestClient(t, ft)

	require.Nil(t, cli.ServerCaps())

	caps, err := cli.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [3]int{2, 4, 0}, caps.Version)
	assert.Same(t, caps, cli.ServerCaps())
}

func TestHTTPTransport_ConnectionPooling(t *testing.T) {
	tr := NewHTTPTransport("", 0)

	conn, err := tr.Connection()
	require.NoError(t, err)
	assert.Empty(t, conn.Connections, "pool starts empty")

	again, err := tr.Connection()
	require.NoError(t, err)
	assert.Same(t, conn, again, "connection handle is shared")
}
