package bridge

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/hageln/forgext/internal/discovery"
)

// Factory instantiates the sandbox for a bundle. The production
// implementation launches a subprocess; tests substitute in-process fakes.
type Factory interface {
	Start(bundle *discovery.Bundle) (Guest, func(), error)
}

// SubprocessFactory launches extension binaries with go-plugin.
type SubprocessFactory struct {
	// Debug raises the plugin handshake logger from error to debug level.
	Debug bool
}

func (f *SubprocessFactory) Start(bundle *discovery.Bundle) (Guest, func(), error) {
	info, err := os.Stat(bundle.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("extension binary check failed: %w", err)
	}
	if !info.Mode().IsRegular() || info.Mode()&0111 == 0 {
		return nil, nil, fmt.Errorf("extension binary %q is not executable", bundle.Path)
	}

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          PluginMap,
		Cmd:              exec.Command(bundle.Path),
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		Logger:           f.pluginLogger(bundle.Name),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("failed to connect to extension: %w", err)
	}

	raw, err := rpcClient.Dispense("extension")
	if err != nil {
		client.Kill()
		return nil, nil, fmt.Errorf("failed to dispense extension: %w", err)
	}

	guest, ok := raw.(Guest)
	if !ok {
		client.Kill()
		return nil, nil, fmt.Errorf("extension %q does not speak the extension ABI", bundle.Name)
	}
	return guest, client.Kill, nil
}

func (f *SubprocessFactory) pluginLogger(name string) hclog.Logger {
	level := hclog.Error
	if f.Debug {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "forgext.plugin." + name,
		Output: os.Stderr,
		Level:  level,
	})
}
