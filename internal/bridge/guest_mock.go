package bridge

import (
	"errors"

	"github.com/hageln/forgext/internal/extension"
	"github.com/hageln/forgext/internal/schema"
)

// MockGuest is an in-process Guest for tests. A nil function field falls
// back to a benign default; returning a plain error simulates a sandbox
// trap, returning *GuestError simulates a guest-reported failure.
type MockGuest struct {
	APIInfoFn      func() (APIInfo, error)
	InitFn         func(cfg InitConfig, host HostServices) error
	SchemaFn       func() (*schema.Fragment, error)
	MigrateFn      func(dbPath string) error
	ResolveFieldFn func(field string, argsJSON []byte) ([]byte, error)

	InitConfigs []InitConfig
}

var _ Guest = (*MockGuest)(nil)

func (m *MockGuest) GetAPIInfo() (APIInfo, error) {
	if m.APIInfoFn != nil {
		return m.APIInfoFn()
	}
	return APIInfo{APIVersion: extension.APIVersion}, nil
}

func (m *MockGuest) Init(cfg InitConfig, host HostServices) error {
	m.InitConfigs = append(m.InitConfigs, cfg)
	if m.InitFn != nil {
		return m.InitFn(cfg, host)
	}
	return nil
}

func (m *MockGuest) GetSchema() (*schema.Fragment, error) {
	if m.SchemaFn != nil {
		return m.SchemaFn()
	}
	return &schema.Fragment{}, nil
}

func (m *MockGuest) Migrate(dbPath string) error {
	if m.MigrateFn != nil {
		return m.MigrateFn(dbPath)
	}
	return nil
}

func (m *MockGuest) ResolveField(field string, argsJSON []byte) ([]byte, error) {
	if m.ResolveFieldFn != nil {
		return m.ResolveFieldFn(field, argsJSON)
	}
	return nil, errors.New("no resolver configured")
}
