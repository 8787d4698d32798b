/*
Package core provides the maintenance event types and the enrichment join
that are independent of any particular cloud provider or output format.
*/

package core

// Fixed output field names, in output column order after profile, region and hostname.
const (
	FieldProfile     = "profile"
	FieldRegion      = "region"
	FieldHostname    = "hostname"
	FieldInstanceID  = "InstanceId"
	FieldCode        = "Code"
	FieldDescription = "Description"
	FieldNotAfter    = "NotAfter"
	FieldNotBefore   = "NotBefore"

	// NameTag is the tag used as the instance hostname.
	NameTag = "Name"
)

// Columns is the fixed column order of a rendered record.
var Columns = []string{
	FieldProfile,
	FieldRegion,
	FieldHostname,
	FieldInstanceID,
	FieldCode,
	FieldDescription,
	FieldNotAfter,
	FieldNotBefore,
}

// MaintenanceEvent is one scheduled event for one instance. Timestamps are
// kept in the string form the provider layer rendered them in; an unknown
// end time is the empty string.
type MaintenanceEvent struct {
	InstanceID  string
	Code        string
	Description string
	NotBefore   string
	NotAfter    string

	// Extra holds provider attributes outside the fixed schema
	// (e.g. InstanceEventId, NotBeforeDeadline).
	Extra map[string]string
}

// Tag is a single key/value label attached to an instance.
type Tag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// TagSet is the ordered tag collection of one instance, as returned by the provider.
type TagSet []Tag

// Lookup returns the value of the first tag whose key equals key.
func (s TagSet) Lookup(key string) (string, bool) {
	for _, t := range s {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

// Name returns the Name tag value or the empty string.
func (s TagSet) Name() string {
	v, _ := s.Lookup(NameTag)
	return v
}

// TagContainer is the shape a provider hands tag data over in: either a bare
// list of tags or a describe-instances style object carrying them under Tags.
// The set of implementations is closed to BareTags and WrappedTags.
type TagContainer interface {
	tagSet() TagSet
}

// BareTags is a plain tag list.
type BareTags []Tag

func (b BareTags) tagSet() TagSet { return TagSet(b) }

// WrappedTags is an instance description exposing its tags under Tags.
type WrappedTags struct {
	Tags []Tag `json:"Tags"`
}

func (w WrappedTags) tagSet() TagSet { return TagSet(w.Tags) }

// Normalize returns the bare tag sequence held by c. A nil container yields an empty set.
func Normalize(c TagContainer) TagSet {
	if c == nil {
		return TagSet{}
	}
	s := c.tagSet()
	if s == nil {
		return TagSet{}
	}
	return s
}

// TagIndex maps an instance ID to its normalized tags.
type TagIndex map[string]TagSet

// NewTagIndex normalizes every container once, at ingestion.
func NewTagIndex(containers map[string]TagContainer) TagIndex {
	idx := make(TagIndex, len(containers))
	for id, c := range containers {
		idx[id] = Normalize(c)
	}
	return idx
}

// EnrichedRecord is one output row: invocation context, resolved hostname
// and the originating event.
type EnrichedRecord struct {
	Profile  string
	Region   string
	Hostname string
	MaintenanceEvent
}

// Columns returns the record values in Columns order.
func (r *EnrichedRecord) Columns() []string {
	return []string{
		r.Profile,
		r.Region,
		r.Hostname,
		r.InstanceID,
		r.Code,
		r.Description,
		r.NotAfter,
		r.NotBefore,
	}
}

// Map returns every field of the record: the fixed schema, each defaulting to
// the empty string, overlaid with any extra event attributes.
func (r *EnrichedRecord) Map() map[string]string {
	m := make(map[string]string, len(Columns)+len(r.Extra))
	for i, v := range r.Columns() {
		m[Columns[i]] = v
	}
	for k, v := range r.Extra {
		if _, fixed := m[k]; fixed {
			continue
		}
		m[k] = v
	}
	return m
}
