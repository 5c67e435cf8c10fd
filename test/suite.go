package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/slatehq/slate/pkg/api/v1/client"
)

// Suite wires the harness together. Every test gets a fresh configuration,
// a fresh client and a fresh fixture set; nothing is shared across cases.
// Embed it and run with suite.Run.
type Suite struct {
	t *testing.T // The testing.T instance for this suite

	// ConfigPath overrides the default config location when set before the
	// suite runs.
	ConfigPath string

	Config   *Config
	Client   *client.APIClient
	Fixtures *FixtureSet

	// IsMock records that mocking is active for the current test.
	IsMock bool
}

var _ suite.TestingSuite = (*Suite)(nil)

// SetS sets the suite instance for this suite
func (s *Suite) SetS(_ suite.TestingSuite) {
	// Required by suite.TestingSuite; nothing to do here.
}

// SetT sets the testing.T instance for this suite
func (s *Suite) SetT(t *testing.T) {
	s.t = t
}

// T returns the testing.T instance for this suite
func (s *Suite) T() *testing.T {
	return s.t
}

// Require returns a require.Assertions instance for this suite.
// This is a convenience method to avoid passing t around.
func (s *Suite) Require() *require.Assertions {
	return require.New(s.t)
}

// SetupTest reads the config, builds the client and provisions fixtures.
// Mock mode installs the recording transport and fabricates fixtures in
// memory; live mode finds-or-creates them against the configured server.
func (s *Suite) SetupTest() {
	path := s.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}
	cfg, err := ReadConfig(path)
	s.Require().NoError(err, "failed to read harness config")
	s.Config = cfg

	cli, err := client.NewClient(&client.Options{
		ServerURL:  cfg.ServerURL,
		ScriptName: cfg.ScriptName,
		APIKey:     cfg.APIKey,
		HTTPProxy:  cfg.HTTPProxy,
	})
	s.Require().NoError(err, "failed to create API client")
	s.Client = cli

	if cfg.SessionUUID != "" {
		s.Require().NoError(cli.SetSessionUUID(cfg.SessionUUID))
	}

	if cfg.Mock {
		s.InstallMock()
		s.Fixtures = BuildMockFixtures(cfg)
		return
	}

	fx, err := ProvisionFixtures(context.Background(), cli, cfg)
	s.Require().NoError(err, "fixture provisioning failed")
	s.Fixtures = fx
}

// TearDownTest clears the fixtures and drops the client handle. There is no
// close handshake; releasing the reference is the whole contract.
func (s *Suite) TearDownTest() {
	s.Fixtures = nil
	s.Client = nil
	s.IsMock = false
}
