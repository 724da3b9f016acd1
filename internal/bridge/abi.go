// Package bridge is the only path between the host and sandboxed extension
// code. The host invokes the guest's five exported operations through it,
// and the guest reaches host capabilities (scoped logging, its own database)
// back through it. Each extension runs as a separate subprocess driven by
// hashicorp/go-plugin over netRPC; everything crossing the boundary is
// copied as gob-encoded structured data or JSON text, never shared memory.
package bridge

import (
	"encoding/gob"
	"net/rpc"

	"github.com/hashicorp/go-plugin"

	"github.com/hageln/forgext/internal/extension"
	"github.com/hageln/forgext/internal/schema"
)

func init() {
	gob.Register([]any{})
	gob.Register(map[string]any{})
	gob.Register(&schema.ObjectType{})
	gob.Register(&schema.InterfaceType{})
	gob.Register(&schema.ScalarType{})
	gob.Register(&schema.EnumType{})
	gob.Register(&schema.UnionType{})
	gob.Register(&schema.InputObjectType{})
}

// Handshake must match between host and guest binary. A version bump here is
// an ABI break.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "FORGEXT_EXTENSION",
	MagicCookieValue: "forgext-extension-v1",
}

// PluginMap names the single plugin every extension binary serves.
var PluginMap = map[string]plugin.Plugin{
	"extension": &ExtensionPlugin{},
}

// APIInfo is the guest's handshake declaration, read before init.
type APIInfo struct {
	APIVersion   int
	Capabilities []extension.Capability
}

// InitConfig is everything the guest receives at init time.
type InitConfig struct {
	Name         string
	DBPath       string
	Config       string
	APIVersion   int
	Capabilities []extension.Capability

	// HostBrokerID is the mux broker stream carrying the host capability
	// service. Filled in by the bridge, not by callers.
	HostBrokerID uint32
}

// Guest is the host's view of one sandboxed extension. Calls are synchronous
// from the guest's point of view: once entered, guest code cannot yield
// until the call returns. Failures the guest reports itself come back as
// *GuestError; any other error is a transport-level sandbox trap.
type Guest interface {
	GetAPIInfo() (APIInfo, error)
	Init(cfg InitConfig, host HostServices) error
	GetSchema() (*schema.Fragment, error)
	Migrate(dbPath string) error
	// ResolveField returns the field's JSON result verbatim.
	ResolveField(field string, argsJSON []byte) ([]byte, error)
}

// HostServices is the capability surface the host exposes to one guest.
// Everything is scoped to the owning extension: the logger carries its name
// and the database is its exclusively owned file.
type HostServices interface {
	Log(level, message string)
	DBQuery(query string, params []any) ([][]any, error)
	DBExecute(query string, params []any) (int64, error)
	DBMigrate(script string) error
}

// ----- netRPC wire shapes -----

type apiInfoReply struct {
	Info APIInfo
}

type initArgs struct {
	Config InitConfig
}

type initReply struct {
	Err string
}

type schemaReply struct {
	Fragment *schema.Fragment
}

type migrateArgs struct {
	DBPath string
}

type migrateReply struct {
	Err string
}

type resolveArgs struct {
	Field    string
	ArgsJSON []byte
}

type resolveReply struct {
	JSON []byte
	Err  string
}

// GuestHandler is what runs inside the extension binary. The sdk package
// adapts extension authors' code to this surface; the bridge serves it over
// netRPC. ResolveField's error is the guest-reported failure, surfaced to
// the host as an error string rather than a trap.
type GuestHandler interface {
	GetAPIInfo() APIInfo
	Init(cfg InitConfig, host HostServices) error
	GetSchema() *schema.Fragment
	Migrate(dbPath string) error
	ResolveField(field string, argsJSON []byte) ([]byte, error)
}

// ExtensionPlugin wires the guest implementation (server half, inside the
// extension binary) and the host proxy (client half) into go-plugin.
type ExtensionPlugin struct {
	// Impl is set only in the guest process, by sdk.Serve.
	Impl GuestHandler
}

func (p *ExtensionPlugin) Server(b *plugin.MuxBroker) (any, error) {
	return &guestRPCServer{impl: p.Impl, broker: b}, nil
}

func (p *ExtensionPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &guestRPC{client: c, broker: b}, nil
}
