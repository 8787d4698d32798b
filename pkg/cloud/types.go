package cloud

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"gitlab.com/davidxarnold/ec2-events/pkg/core"
)

// Session scopes provider calls to one profile and region. For GCE the
// profile is the project ID.
type Session struct {
	Profile string
	Region  string
	Logger  log.FieldLogger
}

func (s Session) withDefaults() Session {
	if s.Logger == nil {
		l := log.New()
		l.SetOutput(io.Discard)
		s.Logger = l
	}
	return s
}

// SessionError reports that a provider session could not be built (bad
// profile, region or credentials). Nothing has been fetched when it occurs.
type SessionError struct {
	Provider string
	Profile  string
	Region   string
	Err      error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("create %s session for profile %q in %s: %v", e.Provider, e.Profile, e.Region, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// InstanceNotFoundError reports that the metadata source does not know one
// or more requested instances.
type InstanceNotFoundError struct {
	InstanceIDs []string
	Code        string
	Message     string
}

func (e *InstanceNotFoundError) Error() string {
	var b strings.Builder
	b.WriteString("instance not found")
	if len(e.InstanceIDs) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.InstanceIDs, ","))
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// missingIDs returns the ids that have no entry in tags, in request order.
func missingIDs(ids []string, tags map[string]core.TagContainer) []string {
	var missing []string
	for _, id := range ids {
		if _, ok := tags[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
