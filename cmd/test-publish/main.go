// Command test-publish drives a running topicsink with generated MQTT traffic
// and optionally verifies what reached the store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/okian/topicsink/internal/testpublish"
	"github.com/okian/topicsink/pkg/logger"
	"github.com/spf13/cobra"
)

const maxQoS = 2

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &testpublish.Config{}
	var (
		logFile string
		qos     uint8
	)

	cmd := &cobra.Command{
		Use:   "test-publish",
		Short: "Publish typed payloads to a topicsink broker and verify storage",
		Example: `  # Publish 1000 payloads and skip verification
  test-publish

  # Publish 50000 payloads at 2000/s and verify counts in MongoDB
  test-publish -n 50000 --rate 2000 --mongodb-uri mongodb://localhost:27017`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if qos > maxQoS {
				return fmt.Errorf("--qos must be 0, 1 or 2, got %d", qos)
			}
			cfg.QoS = qos
			closeLog, err := testpublish.SetupLogging(logFile, cfg.Verbose)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := testpublish.Run(ctx, cfg); err != nil {
				logger.Get().Error(context.Background(), "publish run failed", logger.Error(err))
				return err
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BrokerURL, "broker", testpublish.DefaultBrokerURL, "MQTT broker URL")
	f.StringVar(&cfg.BaseURL, "url", testpublish.DefaultBaseURL, "base URL of the sink HTTP surface (empty skips the health check)")
	f.StringVar(&cfg.MongoURI, "mongodb-uri", "", "MongoDB URI for count verification (empty skips it)")
	f.StringVar(&cfg.MongoDatabase, "mongodb-database", testpublish.DefaultDatabase, "database the sink writes to")
	f.StringVar(&cfg.TopicPrefix, "prefix", testpublish.DefaultTopicPrefix, "topic prefix; payloads go to <prefix>/<kind>")
	f.IntVarP(&cfg.NumMessages, "messages", "n", testpublish.DefaultMessages, "number of payloads to publish")
	f.Float64Var(&cfg.Rate, "rate", 0, "publishes per second (0 is unlimited)")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "number of concurrent publishers")
	f.Uint8Var(&qos, "qos", 1, "publish quality of service")
	f.DurationVar(&cfg.Timeout, "timeout", testpublish.DefaultTimeout, "connect and request timeout")
	f.DurationVar(&cfg.SettleDelay, "settle", testpublish.DefaultSettleDelay, "wait before verifying stored counts")
	f.StringVar(&cfg.OutputFile, "output", "", "output file for payloads (default: published_payloads_TIMESTAMP.json)")
	f.StringVar(&logFile, "log", "", "log file (default: publish_log_TIMESTAMP.log)")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable verbose logging")

	return cmd
}
