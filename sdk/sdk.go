// Package sdk is the guest-side runtime for extension binaries. An
// extension implements Extension and calls Serve from its main; the
// handshake, capability negotiation transport and host callbacks are
// handled here.
package sdk

import (
	"encoding/json"

	"github.com/hashicorp/go-plugin"

	"github.com/hageln/forgext/internal/bridge"
	"github.com/hageln/forgext/internal/schema"
)

// Host is the capability surface granted by the host process: scoped
// logging and the extension's own database.
type Host = bridge.HostServices

// Config is what the host passes to Init.
type Config = bridge.InitConfig

// Extension is implemented by extension authors.
type Extension interface {
	// Info declares the ABI version and required capabilities. It is read
	// during the handshake, before Init.
	Info() Info
	// Init receives the descriptor config and the host capability surface.
	// The Host stays valid for the life of the process.
	Init(cfg Config, host Host) error
	// Schema returns the extension's schema contribution, exactly once.
	Schema() *Fragment
	// Migrate prepares the extension's database at dbPath.
	Migrate(dbPath string) error
	// Resolve executes one field resolution. The returned JSON is passed to
	// the execution engine verbatim; a returned error is surfaced as the
	// field's GraphQL error message.
	Resolve(field string, args json.RawMessage) (json.RawMessage, error)
}

// Info mirrors the handshake declaration.
type Info struct {
	APIVersion   int
	Capabilities []Capability
}

// Serve runs the extension until the host disconnects. It never returns.
func Serve(ext Extension) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: bridge.Handshake,
		Plugins: map[string]plugin.Plugin{
			"extension": &bridge.ExtensionPlugin{Impl: &handler{ext: ext}},
		},
	})
}

// handler adapts Extension to the bridge's guest surface.
type handler struct {
	ext  Extension
	host Host
}

var _ bridge.GuestHandler = (*handler)(nil)

func (h *handler) GetAPIInfo() bridge.APIInfo {
	info := h.ext.Info()
	return bridge.APIInfo{APIVersion: info.APIVersion, Capabilities: info.Capabilities}
}

func (h *handler) Init(cfg bridge.InitConfig, host bridge.HostServices) error {
	h.host = host
	return h.ext.Init(cfg, host)
}

func (h *handler) GetSchema() *schema.Fragment {
	return h.ext.Schema()
}

func (h *handler) Migrate(dbPath string) error {
	return h.ext.Migrate(dbPath)
}

func (h *handler) ResolveField(field string, argsJSON []byte) ([]byte, error) {
	return h.ext.Resolve(field, argsJSON)
}
