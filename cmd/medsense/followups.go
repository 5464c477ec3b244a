package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/db"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/dispatch"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/followup"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/internal/channelruntime/telegram"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/internal/channelruntime/whatsapp"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/internal/logutil"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/internal/outbound"
)

func newFollowupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "followups",
		Short: "Deliver due follow-up check-ins once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			cat, err := catalogFromViper()
			if err != nil {
				return err
			}

			gdb, err := db.Open(dbConfigFromViper())
			if err != nil {
				return err
			}
			defer func() {
				if sqlDB, err := gdb.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}()
			store := db.NewStore(gdb)

			router := outbound.NewRouter(logger)
			channels := 0
			if token := strings.TrimSpace(viper.GetString("telegram.bot_token")); token != "" {
				tg, err := telegram.New(telegram.Options{
					BotToken: token,
					BaseURL:  viper.GetString("telegram.base_url"),
				}, sendOnlyHandler{}, cat, logger)
				if err != nil {
					return err
				}
				router.Register(dispatch.PlatformTelegram, tg)
				channels++
			}
			waToken := strings.TrimSpace(viper.GetString("whatsapp.access_token"))
			waPhoneID := strings.TrimSpace(viper.GetString("whatsapp.phone_number_id"))
			if waToken != "" && waPhoneID != "" {
				router.Register(dispatch.PlatformWhatsApp, whatsapp.NewClient(nil, viper.GetString("whatsapp.base_url"), waToken, waPhoneID))
				channels++
			}
			if channels == 0 {
				return fmt.Errorf("no messaging channel configured (set telegram.bot_token, or whatsapp.access_token + whatsapp.phone_number_id)")
			}

			scheduler := followup.NewScheduler(followup.Config{}, store, router, cat, logger)
			return scheduler.Sweep(cmd.Context())
		},
	}
}

// sendOnlyHandler satisfies the Telegram runtime's inbound interface for
// commands that only deliver messages. The poll loop never runs here, so
// no events arrive.
type sendOnlyHandler struct{}

func (sendOnlyHandler) Handle(context.Context, dispatch.Event) error { return nil }
