package cloud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"gitlab.com/davidxarnold/ec2-events/pkg/core"
)

// fakeEC2 is a canned ec2API used by provider tests.
type fakeEC2 struct {
	statusIn  *ec2.DescribeInstanceStatusInput
	statusOut *ec2.DescribeInstanceStatusOutput
	statusErr error

	instancesOut *ec2.DescribeInstancesOutput
	instancesErr error

	describedIDs   []string
	instancesCalls int
}

func (f *fakeEC2) DescribeInstanceStatus(
	_ context.Context,
	params *ec2.DescribeInstanceStatusInput,
	_ ...func(*ec2.Options),
) (*ec2.DescribeInstanceStatusOutput, error) {
	f.statusIn = params
	return f.statusOut, f.statusErr
}

func (f *fakeEC2) DescribeInstances(
	_ context.Context,
	params *ec2.DescribeInstancesInput,
	_ ...func(*ec2.Options),
) (*ec2.DescribeInstancesOutput, error) {
	f.instancesCalls++
	f.describedIDs = params.InstanceIds
	return f.instancesOut, f.instancesErr
}

func newTestAWSProvider(f *fakeEC2) *awsProvider {
	s := Session{}.withDefaults()
	return &awsProvider{svc: f, region: "us-east-1", log: s.Logger}
}

func TestAWSEvents_FlattensInstanceStatusEvents(t *testing.T) {
	notBefore := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	notAfter := time.Date(2024, 1, 2, 6, 30, 0, 0, time.UTC)

	f := &fakeEC2{statusOut: &ec2.DescribeInstanceStatusOutput{
		InstanceStatuses: []ec2types.InstanceStatus{
			{
				InstanceId:       aws.String("i-1"),
				AvailabilityZone: aws.String("us-east-1a"),
				Events: []ec2types.InstanceStatusEvent{
					{
						Code:            ec2types.EventCodeSystemReboot,
						Description:     aws.String("scheduled reboot"),
						InstanceEventId: aws.String("instance-event-1"),
						NotBefore:       &notBefore,
						NotAfter:        &notAfter,
					},
					{
						Code:      ec2types.EventCodeInstanceRetirement,
						NotBefore: &notBefore,
					},
				},
			},
			{InstanceId: aws.String("i-quiet")},
			{
				InstanceId: aws.String("i-2"),
				Events: []ec2types.InstanceStatusEvent{
					{Code: ec2types.EventCodeSystemMaintenance},
				},
			},
		},
	}}

	events, err := newTestAWSProvider(f).Events(context.Background())
	if err != nil {
		t.Fatalf("Events returned error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Events returned %d events, want 3", len(events))
	}

	if f.statusIn == nil || !aws.ToBool(f.statusIn.IncludeAllInstances) {
		t.Errorf("DescribeInstanceStatus must include stopped instances, got %+v", f.statusIn)
	}

	first := events[0]
	if first.InstanceID != "i-1" || first.Code != "system-reboot" || first.Description != "scheduled reboot" {
		t.Errorf("unexpected first event: %+v", first)
	}
	if first.NotBefore != "2024-01-01T00:00:00Z" {
		t.Errorf("NotBefore = %q, want %q", first.NotBefore, "2024-01-01T00:00:00Z")
	}
	if first.NotAfter != "2024-01-02T06:30:00Z" {
		t.Errorf("NotAfter = %q, want %q", first.NotAfter, "2024-01-02T06:30:00Z")
	}
	if first.Extra[attrInstanceEventID] != "instance-event-1" {
		t.Errorf("Extra[%s] = %q, want %q", attrInstanceEventID, first.Extra[attrInstanceEventID], "instance-event-1")
	}
	if first.Extra[attrAvailabilityZone] != "us-east-1a" {
		t.Errorf("Extra[%s] = %q, want %q", attrAvailabilityZone, first.Extra[attrAvailabilityZone], "us-east-1a")
	}

	if events[1].Code != "instance-retirement" || events[1].NotAfter != "" {
		t.Errorf("unexpected second event: %+v", events[1])
	}
	if events[2].InstanceID != "i-2" || events[2].Code != "system-maintenance" {
		t.Errorf("unexpected third event: %+v", events[2])
	}
}

func TestAWSEvents_CallError(t *testing.T) {
	f := &fakeEC2{statusErr: errors.New("connection reset")}

	_, err := newTestAWSProvider(f).Events(context.Background())
	if err == nil {
		t.Fatalf("Events returned nil error")
	}
	if !errors.Is(err, f.statusErr) {
		t.Errorf("Events error %v does not wrap the call error", err)
	}
}

func TestAWSInstanceTags_WrapsTags(t *testing.T) {
	f := &fakeEC2{instancesOut: &ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{
			{Instances: []ec2types.Instance{
				{
					InstanceId: aws.String("i-1"),
					Tags: []ec2types.Tag{
						{Key: aws.String("Env"), Value: aws.String("prod")},
						{Key: aws.String("Name"), Value: aws.String("web-1")},
					},
				},
			}},
			{Instances: []ec2types.Instance{
				{InstanceId: aws.String("i-2")},
			}},
		},
	}}

	got, err := newTestAWSProvider(f).InstanceTags(context.Background(), []string{"i-1", "i-2"})
	if err != nil {
		t.Fatalf("InstanceTags returned error: %v", err)
	}
	if len(f.describedIDs) != 2 {
		t.Errorf("DescribeInstances called with %v, want both ids", f.describedIDs)
	}

	w, ok := got["i-1"].(core.WrappedTags)
	if !ok {
		t.Fatalf("i-1 tags are %T, want core.WrappedTags", got["i-1"])
	}
	if name := core.Normalize(w).Name(); name != "web-1" {
		t.Errorf("i-1 Name = %q, want %q", name, "web-1")
	}
	if name := core.Normalize(got["i-2"]).Name(); name != "" {
		t.Errorf("i-2 Name = %q, want empty", name)
	}
}

func TestAWSInstanceTags_AbsentInstance(t *testing.T) {
	f := &fakeEC2{instancesOut: &ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{
			{Instances: []ec2types.Instance{{InstanceId: aws.String("i-2")}}},
		},
	}}

	got, err := newTestAWSProvider(f).InstanceTags(context.Background(), []string{"i-1", "i-2", "i-3"})
	if got != nil {
		t.Errorf("InstanceTags returned %v alongside an error, want nil", got)
	}
	var nf *InstanceNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("InstanceTags error = %v, want *InstanceNotFoundError", err)
	}
	want := []string{"i-1", "i-3"}
	if len(nf.InstanceIDs) != len(want) {
		t.Fatalf("InstanceNotFoundError.InstanceIDs = %v, want %v", nf.InstanceIDs, want)
	}
	for i := range want {
		if nf.InstanceIDs[i] != want[i] {
			t.Errorf("InstanceIDs[%d] = %q, want %q", i, nf.InstanceIDs[i], want[i])
		}
	}
}

func TestAWSInstanceTags_NoIDsSkipsCall(t *testing.T) {
	f := &fakeEC2{}

	got, err := newTestAWSProvider(f).InstanceTags(context.Background(), nil)
	if err != nil {
		t.Fatalf("InstanceTags returned error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("InstanceTags returned %d entries, want 0", len(got))
	}
	if f.instancesCalls != 0 {
		t.Errorf("DescribeInstances called %d times, want 0", f.instancesCalls)
	}
}

func TestAWSInstanceTags_Errors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantNotFound bool
	}{
		{
			name:         "not found",
			err:          &smithy.GenericAPIError{Code: "InvalidInstanceID.NotFound", Message: "The instance ID 'i-9' does not exist"},
			wantNotFound: true,
		},
		{
			name:         "malformed",
			err:          &smithy.GenericAPIError{Code: "InvalidInstanceID.Malformed", Message: "Invalid id: \"x\""},
			wantNotFound: true,
		},
		{
			name: "unauthorized",
			err:  &smithy.GenericAPIError{Code: "UnauthorizedOperation", Message: "not allowed"},
		},
		{
			name: "network",
			err:  errors.New("dial tcp: i/o timeout"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeEC2{instancesErr: tt.err}

			_, err := newTestAWSProvider(f).InstanceTags(context.Background(), []string{"i-9"})
			if err == nil {
				t.Fatalf("InstanceTags returned nil error")
			}

			var nf *InstanceNotFoundError
			isNotFound := errors.As(err, &nf)
			if isNotFound != tt.wantNotFound {
				t.Fatalf("errors.As(InstanceNotFoundError) = %v, want %v (err: %v)", isNotFound, tt.wantNotFound, err)
			}
			if isNotFound {
				if len(nf.InstanceIDs) != 1 || nf.InstanceIDs[0] != "i-9" {
					t.Errorf("InstanceNotFoundError.InstanceIDs = %v, want [i-9]", nf.InstanceIDs)
				}
				return
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("error %v does not wrap %v", err, tt.err)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 3, 10, 12, 0, 0, 0, loc)

	if got := formatTime(&ts); got != "2024-03-10T10:00:00Z" {
		t.Errorf("formatTime = %q, want %q", got, "2024-03-10T10:00:00Z")
	}
	if got := formatTime(nil); got != "" {
		t.Errorf("formatTime(nil) = %q, want empty", got)
	}
	var zero time.Time
	if got := formatTime(&zero); got != "" {
		t.Errorf("formatTime(zero) = %q, want empty", got)
	}
}
