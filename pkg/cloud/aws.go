package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	log "github.com/sirupsen/logrus"

	"gitlab.com/davidxarnold/ec2-events/pkg/core"
)

// EC2 error code prefix for unknown or malformed instance IDs, e.g.
// InvalidInstanceID.NotFound.
const awsInstanceIDErrorPrefix = "InvalidInstanceID."

// Extra attribute names carried on AWS events.
const (
	attrInstanceEventID   = "InstanceEventId"
	attrNotBeforeDeadline = "NotBeforeDeadline"
	attrAvailabilityZone  = "AvailabilityZone"
)

// ec2API is the subset of the EC2 client used here.
type ec2API interface {
	DescribeInstanceStatus(
		ctx context.Context,
		params *ec2.DescribeInstanceStatusInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeInstanceStatusOutput, error)
	DescribeInstances(
		ctx context.Context,
		params *ec2.DescribeInstancesInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeInstancesOutput, error)
}

// awsProvider implements Provider for EC2.
type awsProvider struct {
	svc    ec2API
	region string
	log    log.FieldLogger
}

func newAWSProvider(ctx context.Context, s Session) (Provider, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.Region)}
	if s.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(s.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	s.Logger.WithFields(log.Fields{
		"profile": s.Profile,
		"region":  cfg.Region,
	}).Debug("loaded aws config")

	return &awsProvider{
		svc:    ec2.NewFromConfig(cfg),
		region: cfg.Region,
		log:    s.Logger,
	}, nil
}

// Events lists scheduled events from DescribeInstanceStatus, one event per
// InstanceStatusEvent, in the order the API returned them.
func (p *awsProvider) Events(ctx context.Context) ([]core.MaintenanceEvent, error) {
	p.log.Debug("finding events")

	// Stopped instances can still carry scheduled events.
	out, err := p.svc.DescribeInstanceStatus(ctx, &ec2.DescribeInstanceStatusInput{
		IncludeAllInstances: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("describe instance status in %s: %w", p.region, err)
	}

	var events []core.MaintenanceEvent
	for i := range out.InstanceStatuses {
		status := &out.InstanceStatuses[i]
		for j := range status.Events {
			events = append(events, awsEvent(status, &status.Events[j]))
		}
	}

	p.log.Infof("found %d maintenance event(s) in %s", len(events), p.region)
	return events, nil
}

// InstanceTags describes exactly ids and returns each instance as WrappedTags.
// Requested instances the API does not return are reported as
// *InstanceNotFoundError.
func (p *awsProvider) InstanceTags(ctx context.Context, ids []string) (map[string]core.TagContainer, error) {
	tags := make(map[string]core.TagContainer, len(ids))
	if len(ids) == 0 {
		return tags, nil
	}

	p.log.Debugf("describe instances: %v", ids)

	out, err := p.svc.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: ids})
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && strings.HasPrefix(ae.ErrorCode(), awsInstanceIDErrorPrefix) {
			p.log.Debugf("error occurred describing instances %v: %v", ids, ae.ErrorCode())
			return nil, &InstanceNotFoundError{
				InstanceIDs: ids,
				Code:        ae.ErrorCode(),
				Message:     ae.ErrorMessage(),
			}
		}
		return nil, fmt.Errorf("describe instances %v: %w", ids, err)
	}

	for _, r := range out.Reservations {
		for _, instance := range r.Instances {
			id := aws.ToString(instance.InstanceId)
			if id == "" {
				continue
			}
			tags[id] = core.WrappedTags{Tags: awsTags(instance.Tags)}
		}
	}

	p.log.Debugf("described %d of %d instance(s)", len(tags), len(ids))
	if missing := missingIDs(ids, tags); len(missing) > 0 {
		return nil, &InstanceNotFoundError{InstanceIDs: missing}
	}
	return tags, nil
}

func awsEvent(status *ec2types.InstanceStatus, ev *ec2types.InstanceStatusEvent) core.MaintenanceEvent {
	extra := map[string]string{}
	if v := aws.ToString(ev.InstanceEventId); v != "" {
		extra[attrInstanceEventID] = v
	}
	if ev.NotBeforeDeadline != nil {
		extra[attrNotBeforeDeadline] = formatTime(ev.NotBeforeDeadline)
	}
	if v := aws.ToString(status.AvailabilityZone); v != "" {
		extra[attrAvailabilityZone] = v
	}

	return core.MaintenanceEvent{
		InstanceID:  aws.ToString(status.InstanceId),
		Code:        string(ev.Code),
		Description: aws.ToString(ev.Description),
		NotBefore:   formatTime(ev.NotBefore),
		NotAfter:    formatTime(ev.NotAfter),
		Extra:       extra,
	}
}

func awsTags(in []ec2types.Tag) []core.Tag {
	out := make([]core.Tag, 0, len(in))
	for _, t := range in {
		if t.Key == nil {
			continue
		}
		out = append(out, core.Tag{Key: *t.Key, Value: aws.ToString(t.Value)})
	}
	return out
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// nolint:gochecknoinits // registration-style init keeps provider wiring local to this file.
func init() {
	RegisterProvider(ProviderAWS, newAWSProvider)
}
