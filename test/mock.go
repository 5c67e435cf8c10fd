package test

import (
	"encoding/json"
	"strconv"

	"github.com/stretchr/testify/require"

	"github.com/slatehq/slate/pkg/api/v1/client"
	"github.com/slatehq/slate/pkg/api/v1/handlers"
)

// mockServerVersion is the capability descriptor installed on mocked
// clients, skipping the real negotiation handshake.
var mockServerVersion = [3]int{2, 4, 0}

// RecordedCall is one captured transport invocation.
type RecordedCall struct {
	Conn *client.Connection
	URL  string
	Body []byte
}

// MockTransport is a recording stand-in for the client's network layer. It
// performs no I/O; every call is recorded and answered by RequestFunc,
// which individual tests may override for scripted behavior.
type MockTransport struct {
	RequestFunc func(conn *client.Connection, rawURL string, body []byte) (client.Status, map[string]string, []byte, error)

	conn  *client.Connection
	calls []RecordedCall
}

var _ client.Transport = (*MockTransport)(nil)

// NewMockTransport creates a stand-in whose default response is
// (200 OK, {}, nil) and whose connection pool starts empty.
func NewMockTransport() *MockTransport {
	m := &MockTransport{conn: client.NewConnection()}
	m.SetResponse(client.OK, map[string]string{}, nil)
	return m
}

// Request records the call and returns whatever RequestFunc is configured
// to answer.
func (m *MockTransport) Request(conn *client.Connection, rawURL string, body []byte) (client.Status, map[string]string, []byte, error) {
	m.calls = append(m.calls, RecordedCall{
		Conn: conn,
		URL:  rawURL,
		Body: append([]byte(nil), body...),
	})
	return m.RequestFunc(conn, rawURL, body)
}

// Connection always returns the single shared fake connection handle.
func (m *MockTransport) Connection() (*client.Connection, error) {
	return m.conn, nil
}

// SetResponse replaces RequestFunc with one that answers every call with
// the given triple.
func (m *MockTransport) SetResponse(status client.Status, headers map[string]string, body []byte) {
	m.RequestFunc = func(_ *client.Connection, _ string, _ []byte) (client.Status, map[string]string, []byte, error) {
		return status, headers, body, nil
	}
}

// Calls returns the recorded invocations in order.
func (m *MockTransport) Calls() []RecordedCall {
	return m.calls
}

// CallCount returns how many times the transport was invoked.
func (m *MockTransport) CallCount() int {
	return len(m.calls)
}

// LastCall returns the most recent recorded invocation.
func (m *MockTransport) LastCall() (RecordedCall, bool) {
	if len(m.calls) == 0 {
		return RecordedCall{}, false
	}
	return m.calls[len(m.calls)-1], true
}

// InstallMock swaps a fresh recording transport into the suite's client and
// sets the server capabilities directly to a known-good version, so no
// negotiation handshake ever reaches the network.
func (s *Suite) InstallMock() {
	s.Client.SetTransport(NewMockTransport())
	s.Client.SetServerCaps(&client.ServerCapabilities{
		Host:    s.Client.ServerURL(),
		Version: mockServerVersion,
	})
	s.IsMock = true
}

// MockTransport returns the installed stand-in, or nil when the client's
// transport is real.
func (s *Suite) MockTransport() *MockTransport {
	mt, _ := s.Client.Transport().(*MockTransport)
	return mt
}

// InjectResponse configures the canned response for subsequent client
// calls. data may be a string, a byte slice or any JSON-encodable value;
// caller headers override the baseline response headers; a nil status
// defaults to 200 OK. Mocking is re-installed first so call-history
// assertions start fresh for this response.
//
// When the client's transport was never mocked this is a silent no-op:
// setting a response must not install mocking as a side effect.
func (s *Suite) InjectResponse(data any, headers map[string]string, status *client.Status) {
	if s.MockTransport() == nil {
		return
	}

	var body []byte
	switch d := data.(type) {
	case nil:
	case string:
		body = []byte(d)
	case []byte:
		body = d
	default:
		encoded, err := json.Marshal(d)
		s.Require().NoError(err, "failed to encode mock response data")
		body = encoded
	}

	contentLength := "0"
	if len(body) > 0 {
		contentLength = strconv.Itoa(len(body))
	}
	respHeaders := map[string]string{
		"cache-control":  "no-cache",
		"connection":     "close",
		"content-length": contentLength,
		"content-type":   "application/json; charset=utf-8",
		"date":           "Wed, 13 Apr 2011 04:18:58 GMT",
		"server":         "Apache/2.2.3 (CentOS)",
		"status":         "200 OK",
	}
	for k, v := range headers {
		respHeaders[k] = v
	}

	st := client.OK
	if status != nil {
		st = *status
	}

	s.InstallMock()
	s.MockTransport().SetResponse(st, respHeaders, body)
}

// AssertMethodCalled inspects the most recent recorded call: the envelope's
// method_name must equal method; with checkAuth the auth block must carry
// the configured script credentials; a non-nil params must equal the
// envelope's last params element exactly.
func (s *Suite) AssertMethodCalled(method string, params any, checkAuth bool) {
	s.t.Helper()
	assertMethodCalled(s.t, s.MockTransport(), s.Config, method, params, checkAuth)
}

func assertMethodCalled(t require.TestingT, mt *MockTransport, cfg *Config, method string, params any, checkAuth bool) {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	require.NotNil(t, mt, "transport is not mocked")

	last, ok := mt.LastCall()
	require.True(t, ok, "no calls recorded")

	var env struct {
		MethodName string            `json:"method_name"`
		Params     []json.RawMessage `json:"params"`
	}
	require.NoError(t, json.Unmarshal(last.Body, &env), "request body is not a valid envelope")
	require.Equal(t, method, env.MethodName)

	if len(env.Params) == 0 {
		require.Fail(t, "envelope carries no params")
		return
	}

	if checkAuth {
		var auth handlers.AuthParams
		require.NoError(t, json.Unmarshal(env.Params[0], &auth), "auth block is not decodable")
		require.Equal(t, cfg.ScriptName, auth.ScriptName)
		require.Equal(t, cfg.APIKey, auth.ScriptKey)
	}

	if params != nil {
		expected, err := json.Marshal(params)
		require.NoError(t, err, "failed to encode expected params")
		require.JSONEq(t, string(expected), string(env.Params[len(env.Params)-1]))
	}
}
