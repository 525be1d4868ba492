package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fjod/cats-den/internal/events"
)

var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Consume order events and send customer notices",
	Long: `Reads order events from the configured Kafka topic and sends the
customer-facing notice for each one. Notices are written to the log.`,
	RunE: runNotifier,
}

func init() {
	rootCmd.AddCommand(notifierCmd)
}

func runNotifier(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers must be set to run the notifier")
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader := events.NewKafkaReader(cfg.Kafka.Topic, cfg.Kafka.GroupID, cfg.Kafka.Brokers...)
	n := events.NewNotifier(reader, events.LogMailer{Log: log}, log)
	defer n.Close()

	log.Info("notifier started", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.GroupID)
	n.Run(ctx)
	log.Info("notifier stopped")
	return nil
}
