// Package client provides the API client for interacting with the slate
// entity API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/slatehq/slate/pkg/api/v1/handlers"
	"github.com/slatehq/slate/pkg/api/v1/routes"
	"github.com/slatehq/slate/pkg/types"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// Client is the interface for the entity API client
type Client interface {
	// FindOne returns the first entity of the given type matching the
	// filters, or nil when nothing matches.
	FindOne(ctx context.Context, entityType string, filters []types.Filter, fields []string) (types.Entity, error)

	// Create stores a new entity and returns it restricted to returnFields.
	Create(ctx context.Context, entityType string, data types.Entity, returnFields []string) (types.Entity, error)
}

var _ Client = (*APIClient)(nil)

// ServerCapabilities describes the server the client is talking to.
type ServerCapabilities struct {
	Host    string
	Version [3]int
}

// Options contains configuration options for the API client
type Options struct {
	// ServerURL is the base URL of the API server
	ServerURL string

	// ScriptName and APIKey are the script credentials carried in the auth
	// block of every call. Opaque strings, passed through as given.
	ScriptName string
	APIKey     string

	// HTTPProxy is an optional proxy for the real transport
	HTTPProxy string

	// Timeout is the request timeout
	Timeout time.Duration

	// Transport overrides the network layer. Nil selects the real HTTP
	// transport; tests pass a recording stand-in.
	Transport Transport
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		ServerURL: routes.DefaultBaseURL,
		Timeout:   DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	serverURL   string
	scriptName  string
	apiKey      string
	sessionUUID string
	transport   Transport
	serverCaps  *ServerCapabilities
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (*APIClient, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	u, err := url.Parse(opts.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	transport := opts.Transport
	if transport == nil {
		transport = NewHTTPTransport(opts.HTTPProxy, opts.Timeout)
	}

	return &APIClient{
		serverURL:  u.String(),
		scriptName: opts.ScriptName,
		apiKey:     opts.APIKey,
		transport:  transport,
	}, nil
}

// ServerURL returns the base URL the client was constructed with.
func (c *APIClient) ServerURL() string {
	return c.serverURL
}

// ScriptName returns the configured script name.
func (c *APIClient) ScriptName() string {
	return c.scriptName
}

// Transport returns the client's current transport.
func (c *APIClient) Transport() Transport {
	return c.transport
}

// SetTransport replaces the client's transport. Used by the test harness to
// swap in a recording stand-in.
func (c *APIClient) SetTransport(t Transport) {
	c.transport = t
}

// SetSessionUUID attaches a session identifier to subsequent calls.
// An empty string clears it.
func (c *APIClient) SetSessionUUID(id string) error {
	if id == "" {
		c.sessionUUID = ""
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid session uuid %q: %w", id, err)
	}
	c.sessionUUID = id
	return nil
}

// ServerCaps returns the negotiated server capabilities, or nil before
// negotiation.
func (c *APIClient) ServerCaps() *ServerCapabilities {
	return c.serverCaps
}

// SetServerCaps sets the capability descriptor directly, bypassing
// negotiation. The test harness uses this when mocking.
func (c *APIClient) SetServerCaps(caps *ServerCapabilities) {
	c.serverCaps = caps
}

// Info negotiates server capabilities via the info method and caches them.
func (c *APIClient) Info(ctx context.Context) (*ServerCapabilities, error) {
	results, err := c.call(ctx, handlers.MethodInfo, nil)
	if err != nil {
		return nil, err
	}
	var info handlers.ServerInfo
	if len(results) > 0 {
		if err := json.Unmarshal(results, &info); err != nil {
			return nil, fmt.Errorf("failed to decode server info: %w", err)
		}
	}
	caps := &ServerCapabilities{Host: c.serverURL}
	for i := 0; i < len(info.Version) && i < 3; i++ {
		caps.Version[i] = info.Version[i]
	}
	c.serverCaps = caps
	return caps, nil
}

// FindOne returns the first entity matching the filters, or nil on a miss.
func (c *APIClient) FindOne(ctx context.Context, entityType string, filters []types.Filter, fields []string) (types.Entity, error) {
	payload := handlers.FindOnePayload{
		Type:    entityType,
		Filters: filters,
		Fields:  fields,
	}
	results, err := c.call(ctx, handlers.MethodFindOne, payload)
	if err != nil {
		return nil, err
	}
	return decodeEntity(results)
}

// Create stores a new entity and returns it restricted to returnFields.
func (c *APIClient) Create(ctx context.Context, entityType string, data types.Entity, returnFields []string) (types.Entity, error) {
	payload := handlers.CreatePayload{
		Type:         entityType,
		Fields:       data,
		ReturnFields: returnFields,
	}
	results, err := c.call(ctx, handlers.MethodCreate, payload)
	if err != nil {
		return nil, err
	}
	return decodeEntity(results)
}

// envelope is the api3 request wrapper. The auth block always rides first
// and the method payload last.
type envelope struct {
	MethodName string `json:"method_name"`
	Params     []any  `json:"params"`
}

func (c *APIClient) authParams() handlers.AuthParams {
	return handlers.AuthParams{
		ScriptName:  c.scriptName,
		ScriptKey:   c.apiKey,
		SessionUUID: c.sessionUUID,
	}
}

// call marshals the envelope, sends it through the transport and returns
// the raw results field. An empty response body yields nil results, which
// callers treat as a miss.
func (c *APIClient) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(envelope{
		MethodName: method,
		Params:     []any{c.authParams(), payload},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	conn, err := c.transport.Connection()
	if err != nil {
		return nil, err
	}

	status, _, respBody, err := c.transport.Request(conn, c.serverURL+routes.RPCPath, body)
	if err != nil {
		return nil, err
	}

	if status.Code < 200 || status.Code >= 300 {
		var rpcErr handlers.RPCErrorResponse
		if json.Unmarshal(respBody, &rpcErr) == nil && rpcErr.Message != "" {
			return nil, fmt.Errorf("%s failed: %s (%d %s)", method, rpcErr.Message, status.Code, status.Reason)
		}
		return nil, fmt.Errorf("%s failed: %d %s", method, status.Code, status.Reason)
	}

	if len(respBody) == 0 {
		return nil, nil
	}

	var resp struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return resp.Results, nil
}

// decodeEntity turns a raw results value into an entity. Null or absent
// results decode to nil.
func decodeEntity(results json.RawMessage) (types.Entity, error) {
	if len(results) == 0 || string(results) == "null" {
		return nil, nil
	}
	var entity types.Entity
	if err := json.Unmarshal(results, &entity); err != nil {
		return nil, fmt.Errorf("failed to decode entity: %w", err)
	}
	return entity, nil
}
