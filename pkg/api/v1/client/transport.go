package client

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpproxy"
)

// Status is the status descriptor pair returned by a transport:
// numeric code plus reason phrase.
type Status struct {
	Code   int
	Reason string
}

// OK is the baseline success status.
var OK = Status{Code: 200, Reason: "OK"}

// Connection is the handle a transport hands out. It exposes the mutable
// mapping of pooled per-host clients the transport is holding.
type Connection struct {
	Connections map[string]*fasthttp.HostClient
}

// NewConnection returns a connection handle with an empty pool.
func NewConnection() *Connection {
	return &Connection{Connections: make(map[string]*fasthttp.HostClient)}
}

// Transport is the network seam of the client. The real implementation
// performs HTTP; tests substitute a recording stand-in at construction time
// or via APIClient.SetTransport.
type Transport interface {
	// Request POSTs body to the given URL over the connection and returns
	// the response status descriptor, headers and body.
	Request(conn *Connection, rawURL string, body []byte) (Status, map[string]string, []byte, error)

	// Connection returns the transport's connection handle.
	Connection() (*Connection, error)
}

// HTTPTransport performs real HTTP calls on fasthttp, keeping one pooled
// HostClient per host in its connection handle.
type HTTPTransport struct {
	proxy   string
	timeout time.Duration
	conn    *Connection
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport. proxy may be empty; a zero timeout
// falls back to DefaultTimeout.
func NewHTTPTransport(proxy string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{proxy: proxy, timeout: timeout}
}

// Connection returns the shared connection handle, creating it on first use.
func (t *HTTPTransport) Connection() (*Connection, error) {
	if t.conn == nil {
		t.conn = NewConnection()
	}
	return t.conn, nil
}

// Request POSTs a JSON body and returns the response triple.
func (t *HTTPTransport) Request(conn *Connection, rawURL string, body []byte) (Status, map[string]string, []byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Status{}, nil, nil, fmt.Errorf("invalid request URL: %w", err)
	}

	hc, err := t.hostClient(conn, u)
	if err != nil {
		return Status{}, nil, nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rawURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json; charset=utf-8")
	req.SetBody(body)

	if err := hc.DoTimeout(req, resp, t.timeout); err != nil {
		return Status{}, nil, nil, fmt.Errorf("request to %s failed: %w", u.Host, err)
	}

	headers := make(map[string]string)
	resp.Header.VisitAll(func(key, value []byte) {
		headers[strings.ToLower(string(key))] = string(value)
	})

	status := Status{
		Code:   resp.StatusCode(),
		Reason: fasthttp.StatusMessage(resp.StatusCode()),
	}
	return status, headers, append([]byte(nil), resp.Body()...), nil
}

// hostClient returns the pooled client for the URL's host, creating and
// caching one on first use.
func (t *HTTPTransport) hostClient(conn *Connection, u *url.URL) (*fasthttp.HostClient, error) {
	isTLS := u.Scheme == "https"
	addr := u.Host
	if u.Port() == "" {
		if isTLS {
			addr += ":443"
		} else {
			addr += ":80"
		}
	}

	if hc, ok := conn.Connections[addr]; ok {
		return hc, nil
	}

	hc := &fasthttp.HostClient{
		Addr:  addr,
		IsTLS: isTLS,
	}
	if t.proxy != "" {
		hc.Dial = fasthttpproxy.FasthttpHTTPDialer(t.proxy)
	}
	conn.Connections[addr] = hc
	return hc, nil
}
