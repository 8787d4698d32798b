package cloud

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	compute "cloud.google.com/go/compute/apiv1"
	computepb "cloud.google.com/go/compute/apiv1/computepb"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"

	"gitlab.com/davidxarnold/ec2-events/pkg/core"
)

// Extra attribute names carried on GCE events.
const (
	attrMaintenanceStatus = "MaintenanceStatus"
	attrZone              = "Zone"
	attrCanReschedule     = "CanReschedule"
)

// gceProvider implements Provider for Compute Engine. The session profile is
// the project ID and the region selects zones by prefix.
type gceProvider struct {
	project string
	region  string
	log     log.FieldLogger

	// list returns every instance in the project's zones for the region.
	list func(ctx context.Context) ([]*computepb.Instance, error)

	instances map[string]*computepb.Instance
	order     []*computepb.Instance
}

func newGCEProvider(ctx context.Context, s Session) (Provider, error) {
	if s.Profile == "" {
		return nil, errors.New("gce project is required")
	}

	c, err := compute.NewInstancesRESTClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCE client: %w", err)
	}

	p := &gceProvider{
		project: s.Profile,
		region:  s.Region,
		log:     s.Logger,
	}
	p.list = func(ctx context.Context) ([]*computepb.Instance, error) {
		defer func() {
			if err := c.Close(); err != nil {
				p.log.Debugf("failed to close GCE client: %v", err)
			}
		}()
		return aggregatedInstances(ctx, c, p.project, p.region)
	}
	return p, nil
}

func aggregatedInstances(ctx context.Context, c *compute.InstancesClient, project, region string) ([]*computepb.Instance, error) {
	it := c.AggregatedList(ctx, &computepb.AggregatedListInstancesRequest{Project: project})

	var out []*computepb.Instance
	for {
		pair, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list instances in project %s: %w", project, err)
		}
		if !zoneInRegion(pair.Key, region) {
			continue
		}
		out = append(out, pair.Value.GetInstances()...)
	}
	return out, nil
}

// zoneInRegion reports whether an aggregated list scope such as
// "zones/us-central1-a" belongs to region.
func zoneInRegion(scope, region string) bool {
	zone := strings.TrimPrefix(scope, "zones/")
	if zone == scope {
		return false
	}
	return region == "" || strings.HasPrefix(zone, region+"-")
}

func (p *gceProvider) load(ctx context.Context) error {
	if p.instances != nil {
		return nil
	}
	list, err := p.list(ctx)
	if err != nil {
		return err
	}
	p.instances = make(map[string]*computepb.Instance, len(list))
	p.order = list
	for _, inst := range list {
		p.instances[gceInstanceID(inst)] = inst
	}
	p.log.Debugf("listed %d instance(s) in %s/%s", len(p.instances), p.project, p.region)
	return nil
}

// Events returns one event per instance with upcoming maintenance.
func (p *gceProvider) Events(ctx context.Context) ([]core.MaintenanceEvent, error) {
	p.log.Debug("finding events")
	if err := p.load(ctx); err != nil {
		return nil, err
	}

	var events []core.MaintenanceEvent
	for _, inst := range p.order {
		if ev, ok := gceEvent(inst); ok {
			events = append(events, ev)
		}
	}
	p.log.Infof("found %d maintenance event(s) in %s/%s", len(events), p.project, p.region)
	return events, nil
}

// InstanceTags returns the instance name as the Name tag followed by its
// labels, as BareTags. Unknown IDs are reported as *InstanceNotFoundError.
func (p *gceProvider) InstanceTags(ctx context.Context, ids []string) (map[string]core.TagContainer, error) {
	if err := p.load(ctx); err != nil {
		return nil, err
	}
	tags := make(map[string]core.TagContainer, len(ids))
	for _, id := range ids {
		if inst, ok := p.instances[id]; ok {
			tags[id] = gceTags(inst)
		}
	}
	if missing := missingIDs(ids, tags); len(missing) > 0 {
		return nil, &InstanceNotFoundError{InstanceIDs: missing}
	}
	return tags, nil
}

func gceInstanceID(inst *computepb.Instance) string {
	if inst.Id != nil {
		return strconv.FormatUint(inst.GetId(), 10)
	}
	return inst.GetName()
}

func gceEvent(inst *computepb.Instance) (core.MaintenanceEvent, bool) {
	m := inst.GetResourceStatus().GetUpcomingMaintenance()
	if m == nil {
		return core.MaintenanceEvent{}, false
	}

	extra := map[string]string{}
	if v := m.GetMaintenanceStatus(); v != "" {
		extra[attrMaintenanceStatus] = v
	}
	if z := inst.GetZone(); z != "" {
		extra[attrZone] = z[strings.LastIndex(z, "/")+1:]
	}
	if m.CanReschedule != nil {
		extra[attrCanReschedule] = strconv.FormatBool(m.GetCanReschedule())
	}

	return core.MaintenanceEvent{
		InstanceID:  gceInstanceID(inst),
		Code:        strings.ToLower(m.GetType()),
		Description: gceDescription(m),
		NotBefore:   m.GetWindowStartTime(),
		NotAfter:    m.GetWindowEndTime(),
		Extra:       extra,
	}, true
}

func gceDescription(m *computepb.UpcomingMaintenance) string {
	desc := "upcoming " + strings.ToLower(m.GetType()) + " maintenance"
	if s := m.GetMaintenanceStatus(); s != "" {
		desc += " (" + strings.ToLower(s) + ")"
	}
	return desc
}

func gceTags(inst *computepb.Instance) core.BareTags {
	tags := core.BareTags{{Key: core.NameTag, Value: inst.GetName()}}
	labels := inst.GetLabels()
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tags = append(tags, core.Tag{Key: k, Value: labels[k]})
	}
	return tags
}

// nolint:gochecknoinits // registration-style init keeps provider wiring local to this file.
func init() {
	RegisterProvider(ProviderGCE, newGCEProvider)
}
