// Package loader turns discovered bundles into running, schema-registered
// extensions. Loading is strictly sequential and name-sorted so conflict
// diagnostics are reproducible run-to-run.
package loader

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/hageln/forgext/internal/bridge"
	"github.com/hageln/forgext/internal/discovery"
	"github.com/hageln/forgext/internal/eventbus"
	"github.com/hageln/forgext/internal/events"
	"github.com/hageln/forgext/internal/extdb"
	"github.com/hageln/forgext/internal/extension"
	"github.com/hageln/forgext/internal/registry"
	"github.com/hageln/forgext/internal/schema"
)

// Extension is one successfully loaded extension: its immutable descriptor,
// its single schema fragment, and the live sandbox handle.
type Extension struct {
	Descriptor *extension.Descriptor
	Fragment   *schema.Fragment
	Instance   *bridge.Instance

	db *extdb.DB
}

// Close tears down the sandbox and the database handle.
func (e *Extension) Close() {
	e.Instance.Close()
	if e.db != nil {
		e.db.Close()
	}
}

type Options struct {
	// DataDir holds the per-extension database files.
	DataDir string

	// FailFast aborts the whole load on the first failing extension instead
	// of skipping it with a warning.
	FailFast bool

	// CallTimeout bounds each lifecycle call into a guest. Zero means no
	// bound.
	CallTimeout time.Duration
}

type Loader struct {
	factory bridge.Factory
	reg     *registry.Registry
	log     zerolog.Logger
	opt     Options
}

func New(factory bridge.Factory, reg *registry.Registry, log zerolog.Logger, opt Options) *Loader {
	return &Loader{factory: factory, reg: reg, log: log, opt: opt}
}

// LoadAll discovers, loads and registers every extension, then freezes the
// registry. Failed extensions are excluded from the live schema; with
// FailFast unset they are logged and skipped.
func (l *Loader) LoadAll(ctx context.Context, disc discovery.Discovery) (map[string]*Extension, error) {
	bundles, err := disc.ListBundles(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	sort.Slice(bundles, func(i, j int) bool { return bundles[i].Name < bundles[j].Name })

	loaded := make(map[string]*Extension, len(bundles))
	closeAll := func() {
		for _, ext := range loaded {
			ext.Close()
		}
	}

	for _, bundle := range bundles {
		start := time.Now()
		eventbus.Publish(ctx, events.ExtensionLoadStart{Extension: bundle.Name})
		ext, err := l.Load(ctx, bundle)
		eventbus.Publish(ctx, events.ExtensionLoadFinish{Extension: bundle.Name, Err: err, Duration: time.Since(start)})
		if err != nil {
			l.log.Error().Str("extension", bundle.Name).Err(err).Msg("extension load failed")
			if l.opt.FailFast {
				closeAll()
				return nil, err
			}
			continue
		}
		l.log.Info().Str("extension", bundle.Name).
			Int("types", len(ext.Fragment.Types)).
			Msg("extension loaded")
		loaded[bundle.Name] = ext
	}

	if err := l.reg.Freeze(); err != nil {
		closeAll()
		return nil, err
	}
	return loaded, nil
}

// Load runs the full pipeline for one bundle: instantiate the sandbox,
// capability handshake, init, migrate, fetch the schema fragment and merge
// it into the registry. Any failure excludes the bundle entirely.
func (l *Loader) Load(ctx context.Context, bundle *discovery.Bundle) (ext *Extension, err error) {
	guest, closer, err := l.factory.Start(bundle)
	if err != nil {
		return nil, &LoadError{Kind: InstantiationFailed, Extension: bundle.Name, Err: err}
	}
	inst := bridge.NewInstance(bundle.Name, guest, closer)
	defer func() {
		if err != nil {
			inst.Close()
		}
	}()

	// Handshake precedes everything else: an incompatible extension is
	// rejected before its init runs.
	cctx, cancel := l.callCtx(ctx)
	info, err := inst.GetAPIInfo(cctx)
	cancel()
	if err != nil {
		return nil, &LoadError{Kind: InstantiationFailed, Extension: bundle.Name, Err: err}
	}
	if info.APIVersion != extension.APIVersion {
		return nil, &LoadError{
			Kind:      IncompatibleAPIVersion,
			Extension: bundle.Name,
			Err:       fmt.Errorf("extension declares api v%d, host speaks v%d", info.APIVersion, extension.APIVersion),
		}
	}
	if missing := extension.MissingCapabilities(info.Capabilities); len(missing) > 0 {
		return nil, &LoadError{
			Kind:      MissingCapability,
			Extension: bundle.Name,
			Err:       fmt.Errorf("host cannot provide required capabilities %v", missing),
		}
	}

	desc := &extension.Descriptor{
		Name:         bundle.Name,
		DBPath:       extension.DBPathFor(l.opt.DataDir, bundle.Name),
		Config:       bundle.Config,
		APIVersion:   info.APIVersion,
		Capabilities: info.Capabilities,
	}

	var db *extdb.DB
	for _, c := range info.Capabilities {
		if c == extension.CapabilityDatabase {
			db, err = extdb.Open(desc.DBPath)
			if err != nil {
				return nil, &LoadError{Kind: InitializationFailed, Extension: bundle.Name, Err: err}
			}
			break
		}
	}
	defer func() {
		if err != nil && db != nil {
			db.Close()
		}
	}()

	host := bridge.NewHostServices(bundle.Name, l.log, db)
	cfg := bridge.InitConfig{
		Name:         desc.Name,
		DBPath:       desc.DBPath,
		Config:       desc.Config,
		APIVersion:   desc.APIVersion,
		Capabilities: desc.Capabilities,
	}
	cctx, cancel = l.callCtx(ctx)
	err = inst.Init(cctx, cfg, host)
	cancel()
	if err != nil {
		return nil, &LoadError{Kind: InitializationFailed, Extension: bundle.Name, Err: err}
	}

	cctx, cancel = l.callCtx(ctx)
	err = inst.Migrate(cctx, desc.DBPath)
	cancel()
	if err != nil {
		return nil, &LoadError{Kind: MigrationFailed, Extension: bundle.Name, Err: err}
	}

	cctx, cancel = l.callCtx(ctx)
	frag, err := inst.GetSchema(cctx)
	cancel()
	if err != nil {
		return nil, &LoadError{Kind: InitializationFailed, Extension: bundle.Name, Err: err}
	}
	if frag == nil {
		err = &LoadError{Kind: InitializationFailed, Extension: bundle.Name, Err: fmt.Errorf("extension returned no schema fragment")}
		return nil, err
	}

	if err = l.reg.Register(bundle.Name, frag); err != nil {
		return nil, err
	}

	return &Extension{Descriptor: desc, Fragment: frag, Instance: inst, db: db}, nil
}

func (l *Loader) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.opt.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.opt.CallTimeout)
}
