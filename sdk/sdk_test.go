package sdk

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hageln/forgext/internal/bridge"
)

// fakeExtension touches only the exported sdk surface, the same way an
// out-of-tree extension module would.
type fakeExtension struct {
	initCfg  Config
	initHost Host
	resolved string
}

func (f *fakeExtension) Info() Info {
	return Info{APIVersion: APIVersion, Capabilities: []Capability{CapabilityLog}}
}

func (f *fakeExtension) Init(cfg Config, host Host) error {
	f.initCfg = cfg
	f.initHost = host
	return nil
}

func (f *fakeExtension) Schema() *Fragment {
	return &Fragment{Types: []SchemaType{
		&ObjectType{Name: "Query", IsExtension: true, Fields: []*FieldDefinition{
			{Name: "ping", Type: Named("String")},
		}},
	}}
}

func (f *fakeExtension) Migrate(dbPath string) error { return nil }

func (f *fakeExtension) Resolve(field string, args json.RawMessage) (json.RawMessage, error) {
	f.resolved = field
	if field == "broken" {
		return nil, errors.New("no such thing")
	}
	return json.RawMessage(`"pong"`), nil
}

type noopHost struct{}

func (noopHost) Log(level, message string)                  {}
func (noopHost) DBQuery(q string, p []any) ([][]any, error) { return nil, nil }
func (noopHost) DBExecute(q string, p []any) (int64, error) { return 0, nil }
func (noopHost) DBMigrate(script string) error              { return nil }

func TestHandlerAdaptsExtension(t *testing.T) {
	ext := &fakeExtension{}
	var h bridge.GuestHandler = &handler{ext: ext}

	info := h.GetAPIInfo()
	require.Equal(t, APIVersion, info.APIVersion)
	require.Equal(t, []Capability{CapabilityLog}, info.Capabilities)

	cfg := bridge.InitConfig{Name: "demo", APIVersion: APIVersion}
	require.NoError(t, h.Init(cfg, noopHost{}))
	require.Equal(t, "demo", ext.initCfg.Name)
	require.NotNil(t, ext.initHost)

	frag := h.GetSchema()
	require.Len(t, frag.Types, 1)

	out, err := h.ResolveField("ping", []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, `"pong"`, string(out))
	require.Equal(t, "ping", ext.resolved)

	_, err = h.ResolveField("broken", nil)
	require.EqualError(t, err, "no such thing")
}
