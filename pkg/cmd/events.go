/*
Copyright 2025 David Arnold
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
    http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gitlab.com/davidxarnold/ec2-events/pkg/cloud"
	"gitlab.com/davidxarnold/ec2-events/pkg/core"
	"gitlab.com/davidxarnold/ec2-events/pkg/util"
	v "gitlab.com/davidxarnold/ec2-events/version"
)

const (
	envPrefix  = "EC2EVENTS"
	configName = ".ec2-events"

	defaultTimeout = 2 * time.Minute
)

// initConfig reads in the config file and ENV variables if set. It returns
// the config file used, if any.
func initConfig() (string, error) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	viper.SetDefault("provider", cloud.ProviderAWS)
	viper.SetDefault("output", outputText)
	viper.SetDefault("log-format", util.LogFormatText)
	viper.SetDefault("timeout", defaultTimeout)

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return "", nil
		}
		// Search config in home directory with name ".ec2-events" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return viper.ConfigFileUsed(), nil
}

// NewEventsCmd provides a cobra command
func NewEventsCmd() *cobra.Command {
	var (
		verbose bool
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "ec2-events <profile> <region>",
		Short: "List scheduled maintenance events for cloud instances.",
		Long: "ec2-events prints one line per scheduled maintenance event visible to a profile in a region,\n" +
			"with the instance Name tag resolved:\n\n" +
			"  profile,region,hostname,InstanceId,Code,Description,NotAfter,NotBefore\n\n" +
			"Settings are read from ~/.ec2-events.yaml or EC2EVENTS_* environment variables:\n" +
			"provider (aws|gce), output (text|csv|json|table), log-format (text|json), timeout.",
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgUsed, err := initConfig()
			if err != nil {
				return err
			}

			logger := util.NewLogger(cmd.ErrOrStderr(), util.LogLevel(verbose, debug), viper.GetString("log-format"))
			if cfgUsed != "" {
				logger.Debugf("Using config file: %s", cfgUsed)
			}

			render, err := renderer(viper.GetString("output"))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout := viper.GetDuration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			session := cloud.Session{
				Profile: args[0],
				Region:  args[1],
				Logger:  logger,
			}
			p, err := cloud.NewProvider(ctx, viper.GetString("provider"), session)
			if err != nil {
				return err
			}

			records, err := ListEvents(ctx, p, session.Profile, session.Region, logger)
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), records)
		},
	}

	cmd.Version = v.Version

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Log progress at info level")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log API calls at debug level")
	cmd.MarkFlagsMutuallyExclusive("verbose", "debug")

	return cmd
}

// ListEvents fetches the maintenance events visible to p, fetches tags for
// exactly the instances they reference and joins the two. Any error aborts
// the whole listing; no partial result is returned.
func ListEvents(ctx context.Context, p cloud.Provider, profile, region string, logger log.FieldLogger) ([]core.EnrichedRecord, error) {
	events, err := p.Events(ctx)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		logger.Info("no maintenance events found")
		return nil, nil
	}

	ids := core.InstanceIDs(events)
	logger.WithFields(log.Fields{
		"events":    len(events),
		"instances": len(ids),
	}).Debug("fetching instance tags")

	tags, err := p.InstanceTags(ctx, ids)
	if err != nil {
		return nil, err
	}

	records, err := core.Enrich(events, core.NewTagIndex(tags), profile, region)
	if err != nil {
		return nil, err
	}

	logger.Infof("enriched %d event(s)", len(records))
	return records, nil
}
