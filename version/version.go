// Package version holds the build version of ec2-events.
package version

// Version is overridden at build time with
// -ldflags "-X gitlab.com/davidxarnold/ec2-events/version.Version=<tag>".
var Version = "dev"
