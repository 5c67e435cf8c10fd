package test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/slatehq/slate/pkg/api/v1/client"
	"github.com/slatehq/slate/pkg/api/v1/routes"
	"github.com/slatehq/slate/pkg/types"
)

// failRecorder satisfies require.TestingT and records that an assertion
// failed instead of stopping the test.
type failRecorder struct {
	failed bool
}

func (f *failRecorder) Errorf(_ string, _ ...interface{}) { f.failed = true }
func (f *failRecorder) FailNow()                          { f.failed = true }

// MockSuite runs the harness against the checked-in mock-mode config.
type MockSuite struct {
	Suite
}

func TestMockSuite(t *testing.T) {
	suite.Run(t, new(MockSuite))
}

func (s *MockSuite) rpcURL() string {
	return s.Client.ServerURL() + routes.RPCPath
}

func (s *MockSuite) TestInstallMock() {
	s.Require().True(s.IsMock)

	mt := s.MockTransport()
	s.Require().NotNil(mt, "mock transport should be installed in mock mode")

	caps := s.Client.ServerCaps()
	s.Require().NotNil(caps, "server caps should be set without a handshake")
	s.Require().Equal([3]int{2, 4, 0}, caps.Version)

	conn, err := mt.Connection()
	s.Require().NoError(err)
	s.Require().NotNil(conn.Connections, "fake connection should expose a pool mapping")
	s.Require().Empty(conn.Connections, "fake connection pool starts empty")
}

func (s *MockSuite) TestDefaultMockResponse() {
	mt := s.MockTransport()
	conn, err := mt.Connection()
	s.Require().NoError(err)

	status, headers, body, err := mt.Request(conn, s.rpcURL(), []byte("{}"))
	s.Require().NoError(err)
	s.Require().Equal(client.Status{Code: 200, Reason: "OK"}, status)
	s.Require().Empty(headers)
	s.Require().Nil(body)

	// Through the client the empty body reads as a miss.
	entity, err := s.Client.FindOne(context.Background(), types.TypeProject, nil, nil)
	s.Require().NoError(err)
	s.Require().Nil(entity)
}

func (s *MockSuite) TestInjectResponse() {
	s.InjectResponse(map[string]any{"foo": "bar"}, nil, nil)

	mt := s.MockTransport()
	conn, err := mt.Connection()
	s.Require().NoError(err)

	status, headers, body, err := mt.Request(conn, s.rpcURL(), []byte("{}"))
	s.Require().NoError(err)
	s.Require().Equal(client.OK, status)
	s.Require().Contains(headers["content-type"], "application/json")
	s.Require().Equal("13", headers["content-length"])

	var parsed map[string]any
	s.Require().NoError(json.Unmarshal(body, &parsed))
	s.Require().Equal(map[string]any{"foo": "bar"}, parsed)
}

func (s *MockSuite) TestInjectResponseStringPassthrough() {
	s.InjectResponse("not json at all", nil, nil)

	mt := s.MockTransport()
	conn, _ := mt.Connection()
	_, headers, body, err := mt.Request(conn, s.rpcURL(), nil)
	s.Require().NoError(err)
	s.Require().Equal([]byte("not json at all"), body)
	s.Require().Equal("15", headers["content-length"])
}

func (s *MockSuite) TestInjectResponseEmptyBody() {
	s.InjectResponse(nil, nil, nil)

	mt := s.MockTransport()
	conn, _ := mt.Connection()
	_, headers, body, err := mt.Request(conn, s.rpcURL(), nil)
	s.Require().NoError(err)
	s.Require().Nil(body)
	s.Require().Equal("0", headers["content-length"])
}

func (s *MockSuite) TestInjectResponseHeaderOverride() {
	s.InjectResponse(map[string]any{"ok": true}, map[string]string{
		"server":  "slate/1.0",
		"x-extra": "1",
	}, nil)

	mt := s.MockTransport()
	conn, _ := mt.Connection()
	_, headers, _, err := mt.Request(conn, s.rpcURL(), nil)
	s.Require().NoError(err)
	s.Require().Equal("slate/1.0", headers["server"], "caller headers override the baseline")
	s.Require().Equal("1", headers["x-extra"], "caller headers extend the baseline")
	s.Require().Equal("no-cache", headers["cache-control"], "untouched baseline survives")
}

func (s *MockSuite) TestInjectResponseCustomStatus() {
	status := client.Status{Code: 503, Reason: "Service Unavailable"}
	s.InjectResponse(map[string]any{"message": "down"}, nil, &status)

	_, err := s.Client.FindOne(context.Background(), types.TypeProject, nil, nil)
	s.Require().Error(err)
	s.Require().Contains(err.Error(), "503")
}

func (s *MockSuite) TestInjectResponseResetsCallHistory() {
	_, err := s.Client.FindOne(context.Background(), types.TypeProject, nil, nil)
	s.Require().NoError(err)
	s.Require().Equal(1, s.MockTransport().CallCount())

	s.InjectResponse(map[string]any{"foo": "bar"}, nil, nil)
	s.Require().Zero(s.MockTransport().CallCount(), "call history should start fresh")
}

func (s *MockSuite) TestInjectResponseWithoutMockIsNoOp() {
	cli, err := client.NewClient(&client.Options{
		ServerURL:  "http://localhost:8080",
		ScriptName: s.Config.ScriptName,
		APIKey:     s.Config.APIKey,
	})
	s.Require().NoError(err)
	before := cli.Transport()
	s.Require().IsType(&client.HTTPTransport{}, before)

	s.Client = cli
	s.InjectResponse(map[string]any{"foo": "bar"}, nil, nil)

	s.Require().Same(before, cli.Transport(), "transport must remain untouched")
	s.Require().Nil(s.MockTransport(), "injecting must not install mocking")
}

func (s *MockSuite) TestAssertMethodCalled() {
	ctx := context.Background()
	_, err := s.Client.Create(ctx, types.TypeShot, types.Entity{"code": "A1"}, []string{"code"})
	s.Require().NoError(err)

	s.AssertMethodCalled("create", nil, true)
	s.AssertMethodCalled("create", map[string]any{
		"type":          "Shot",
		"fields":        map[string]any{"code": "A1"},
		"return_fields": []string{"code"},
	}, true)
}

func (s *MockSuite) TestAssertMethodCalledMismatch() {
	ctx := context.Background()
	_, err := s.Client.Create(ctx, types.TypeShot, types.Entity{"code": "A1"}, []string{"code"})
	s.Require().NoError(err)

	mt := s.MockTransport()

	wrongMethod := &failRecorder{}
	assertMethodCalled(wrongMethod, mt, s.Config, "find_one", nil, true)
	s.Require().True(wrongMethod.failed, "method name mismatch must fail")

	wrongParams := &failRecorder{}
	assertMethodCalled(wrongParams, mt, s.Config, "create", map[string]any{"code": "B2"}, false)
	s.Require().True(wrongParams.failed, "params mismatch must fail")

	badAuth := *s.Config
	badAuth.APIKey = "wrong-key"
	wrongAuth := &failRecorder{}
	assertMethodCalled(wrongAuth, mt, &badAuth, "create", nil, true)
	s.Require().True(wrongAuth.failed, "auth mismatch must fail")

	happy := &failRecorder{}
	assertMethodCalled(happy, mt, s.Config, "create", nil, true)
	s.Require().False(happy.failed, "matching assertion must pass")
}
