package core

import "fmt"

// MissingInstanceError is returned when an event references an instance that
// is absent from the tag index.
type MissingInstanceError struct {
	InstanceID string
}

func (e *MissingInstanceError) Error() string {
	return fmt.Sprintf("instance %s referenced by a maintenance event is missing from the instance metadata", e.InstanceID)
}

// InstanceIDs returns the distinct instance IDs referenced by events, in the
// order they are first seen.
func InstanceIDs(events []MaintenanceEvent) []string {
	seen := make(map[string]struct{}, len(events))
	ids := make([]string, 0, len(events))
	for i := range events {
		id := events[i].InstanceID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Enrich builds one record per event, in event order. The index must hold an
// entry for every referenced instance; otherwise no records are returned and
// the error is a *MissingInstanceError.
func Enrich(events []MaintenanceEvent, index TagIndex, profile, region string) ([]EnrichedRecord, error) {
	records := make([]EnrichedRecord, 0, len(events))
	for i := range events {
		tags, ok := index[events[i].InstanceID]
		if !ok {
			return nil, &MissingInstanceError{InstanceID: events[i].InstanceID}
		}
		records = append(records, EnrichedRecord{
			Profile:          profile,
			Region:           region,
			Hostname:         tags.Name(),
			MaintenanceEvent: copyEvent(&events[i]),
		})
	}
	return records, nil
}

// copyEvent detaches the record from the caller's Extra map.
func copyEvent(ev *MaintenanceEvent) MaintenanceEvent {
	out := *ev
	if ev.Extra != nil {
		out.Extra = make(map[string]string, len(ev.Extra))
		for k, v := range ev.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
