package discovery

import "context"

// InMemoryDiscovery serves a fixed bundle list. Used in tests.
type InMemoryDiscovery struct {
	bundles []*Bundle
}

func NewInMemoryDiscovery(bundles []*Bundle) *InMemoryDiscovery {
	return &InMemoryDiscovery{bundles: bundles}
}

func (d *InMemoryDiscovery) ListBundles(ctx context.Context) ([]*Bundle, error) {
	return append([]*Bundle(nil), d.bundles...), nil
}
