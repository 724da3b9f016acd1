// Package extension holds the descriptor and capability model shared by the
// loader and the runtime bridge.
package extension

import (
	"fmt"
	"path/filepath"
	"sort"
)

// APIVersion is the extension ABI version this host speaks. The handshake
// requires an exact match.
const APIVersion = 1

// Capability names a host facility an extension may require at handshake
// time.
type Capability string

const (
	CapabilityLog      Capability = "log"
	CapabilityDatabase Capability = "database"
)

// HostCapabilities is the full set this host can provide.
var HostCapabilities = []Capability{CapabilityLog, CapabilityDatabase}

// Descriptor identifies one discovered extension. It is created at discovery
// time, owned by the loader, and immutable afterward.
type Descriptor struct {
	// Name is the unique key for the extension. Database paths, ownership
	// records and diagnostics are all derived from it.
	Name string

	// DBPath is the extension's exclusively owned database file.
	DBPath string

	// Config is an opaque blob passed through to the extension's init call.
	Config string

	APIVersion   int
	Capabilities []Capability
}

// DBPathFor derives the database file path for an extension name. The
// mapping is deterministic so a restarted server reopens the same file, and
// per-name so no two extensions ever share storage.
func DBPathFor(dataDir, name string) string {
	return filepath.Join(dataDir, name+".db")
}

// MissingCapabilities returns required capabilities the host cannot provide,
// sorted for stable diagnostics.
func MissingCapabilities(required []Capability) []Capability {
	available := make(map[Capability]bool, len(HostCapabilities))
	for _, c := range HostCapabilities {
		available[c] = true
	}
	var missing []Capability
	for _, c := range required {
		if !available[c] {
			missing = append(missing, c)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("extension %q (api v%d)", d.Name, d.APIVersion)
}
