package test

import (
	"gopkg.in/ini.v1"
)

// DefaultConfigPath is the fixed location of the harness config file,
// relative to the test package directory.
const DefaultConfigPath = "testdata/config"

// Config holds the harness settings read from the sectioned config file.
// Options absent from the file keep their zero values; nothing here
// validates that required options were actually present.
type Config struct {
	// Mock selects mock mode. Only the exact literal "True" in the file
	// turns this on; see ReadConfig.
	Mock bool

	// Connection credentials, passed through to the client as-is.
	ServerURL   string
	ScriptName  string
	APIKey      string
	HTTPProxy   string
	SessionUUID string

	// Fixture values.
	ProjectName   string
	HumanName     string
	HumanLogin    string
	HumanPassword string
	AssetCode     string
	VersionCode   string
	ShotCode      string
}

// ReadConfig parses a sectioned key=value file into a Config. Every section
// is walked in file order and repeated keys resolve last-write-wins; keys
// that are not recognized options are ignored. A missing or unreadable file
// returns the file layer's error unmodified.
//
// The mock option is coerced by comparing its raw text to the literal
// "True". Any other spelling, including "true", "TRUE" and "1", reads as
// false. Inherited behavior, kept as-is; config_test pins it down.
func ReadConfig(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	rawMock := ""
	for _, section := range file.Sections() {
		for _, key := range section.Keys() {
			value := key.Value()
			switch key.Name() {
			case "mock":
				rawMock = value
			case "server_url":
				cfg.ServerURL = value
			case "script_name":
				cfg.ScriptName = value
			case "api_key":
				cfg.APIKey = value
			case "http_proxy":
				cfg.HTTPProxy = value
			case "session_uuid":
				cfg.SessionUUID = value
			case "project_name":
				cfg.ProjectName = value
			case "human_name":
				cfg.HumanName = value
			case "human_login":
				cfg.HumanLogin = value
			case "human_password":
				cfg.HumanPassword = value
			case "asset_code":
				cfg.AssetCode = value
			case "version_code":
				cfg.VersionCode = value
			case "shot_code":
				cfg.ShotCode = value
			}
		}
	}
	cfg.Mock = rawMock == "True"
	return cfg, nil
}
