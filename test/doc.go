// Package test provides the test-support harness for the slate entity API
// client: a config reader for connection credentials and fixture values, a
// recording mock transport so suites run without a live server, and
// idempotent find-or-create fixture provisioning for live runs.
//
// A typical suite embeds Suite and lets SetupTest decide mock vs. live from
// the config file's mock option. Everything here is single-threaded; each
// test owns its configuration, client and fixtures exclusively.
package test
