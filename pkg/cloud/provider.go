package cloud

import (
	"context"
	"fmt"
	"sort"

	"gitlab.com/davidxarnold/ec2-events/pkg/core"
)

// Provider is implemented by cloud providers capable of listing scheduled
// maintenance events and the tags of the instances they reference.
type Provider interface {
	// Events returns the pending maintenance events visible to the session.
	Events(ctx context.Context) ([]core.MaintenanceEvent, error)
	// InstanceTags returns tag data for exactly the requested instances. An
	// instance the provider cannot find is reported as *InstanceNotFoundError.
	InstanceTags(ctx context.Context, ids []string) (map[string]core.TagContainer, error)
}

// ProviderFactory creates a Provider bound to one session.
type ProviderFactory func(ctx context.Context, s Session) (Provider, error)

// Provider names accepted by NewProvider.
const (
	ProviderAWS = "aws"
	ProviderGCE = "gce"
)

var providerRegistry = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory under the given name.
// It is typically called from init() functions in provider-specific files.
func RegisterProvider(name string, factory ProviderFactory) {
	providerRegistry[name] = factory
}

// Providers returns the registered provider names, sorted.
func Providers() []string {
	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider builds the named provider for s. Factory failures are returned
// as *SessionError.
func NewProvider(ctx context.Context, name string, s Session) (Provider, error) {
	factory, ok := providerRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown cloud provider %q (known: %v)", name, Providers())
	}
	p, err := factory(ctx, s.withDefaults())
	if err != nil {
		return nil, &SessionError{Provider: name, Profile: s.Profile, Region: s.Region, Err: err}
	}
	return p, nil
}
