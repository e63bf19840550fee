/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/notekeep/apiserver/config"
	"github.com/notekeep/apiserver/internal/logger"
	"github.com/notekeep/apiserver/internal/mq"
	"github.com/notekeep/apiserver/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect domain events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log every event published on the events channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logger.New(cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer broker.Close()

		log.WithField("channel", cfg.EventsChannel).Info("tailing events")
		err = broker.Subscribe(ctx, cfg.EventsChannel, func(_ context.Context, msg mq.Message) error {
			logEvent(log, msg)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func logEvent(log logrus.FieldLogger, msg mq.Message) {
	var event types.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.WithError(err).WithField("message_id", msg.ID).Warn("undecodable event")
		return
	}
	log.WithFields(logrus.Fields{
		"message_id":  msg.ID,
		"kind":        event.Kind,
		"user_id":     event.UserID,
		"resource_id": event.ResourceID,
		"occurred_at": event.OccurredAt,
		"payload":     string(event.Payload),
	}).Info("event")
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
