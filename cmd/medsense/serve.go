package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/agent"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/clinics"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/db"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/dispatch"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/followup"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/internal/channelruntime/telegram"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/internal/channelruntime/whatsapp"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/internal/dedup"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/internal/logutil"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/internal/outbound"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/meddb"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/messages"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/outbreaks"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/profile"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/providers/uniai"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/session"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/tools"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/tools/builtin"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot: WhatsApp webhook, Telegram poller and follow-up scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			bind := strings.TrimSpace(flagOrViperString(cmd, "server-bind", "server.bind"))
			if bind == "" {
				bind = "0.0.0.0"
			}
			port := flagOrViperInt(cmd, "server-port", "server.port")
			if port <= 0 {
				port = 5000
			}

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
			store, err := db.NewCachedStore(db.NewStore(gdb))
			if err != nil {
				return err
			}
			defer store.Close()

			sessions := session.NewStore(viper.GetDuration("session.inactivity"))
			seen := dedup.New(viper.GetDuration("dedup.window"))
			router := outbound.NewRouter(logger)

			clinicFinder := clinics.New(clinics.Config{
				OverpassURL:     viper.GetString("clinics.overpass_url"),
				NominatimURL:    viper.GetString("clinics.nominatim_url"),
				UserAgent:       viper.GetString("clinics.user_agent"),
				Timeout:         viper.GetDuration("clinics.timeout"),
				GeocodeInterval: viper.GetDuration("clinics.geocode_interval"),
			}, logger)
			outbreakSource := outbreaks.New(outbreaks.Config{
				URL:     viper.GetString("outbreaks.url"),
				Timeout: viper.GetDuration("outbreaks.timeout"),
			}, logger)
			conditions := meddb.New(meddb.Config{
				BaseURL: viper.GetString("meddb.base_url"),
				Timeout: viper.GetDuration("meddb.timeout"),
			}, logger)

			if strings.TrimSpace(viper.GetString("llm.api_key")) == "" {
				logger.Warn("llm_api_key_missing")
			}
			llmClient := uniai.New(uniai.Config{
				Provider:           viper.GetString("llm.provider"),
				Endpoint:           viper.GetString("llm.endpoint"),
				APIKey:             viper.GetString("llm.api_key"),
				Model:              viper.GetString("llm.model"),
				RequestTimeout:     viper.GetDuration("llm.request_timeout"),
				ToolsEmulationMode: viper.GetString("llm.tools_emulation_mode"),
				Debug:              viper.GetBool("llm.debug"),
			})

			reg := newToolRegistry(store, clinicFinder, outbreakSource, conditions)
			engine := agent.New(
				llmClient,
				reg,
				agent.Config{
					MaxSteps:       viper.GetInt("agent.max_steps"),
					ParseRetries:   viper.GetInt("agent.parse_retries"),
					MaxTokenBudget: viper.GetInt("agent.max_token_budget"),
				},
				agent.DefaultPromptSpec(),
				agent.WithLogger(logger),
				agent.WithParamsBuilder(func(agent.RunOptions) map[string]any {
					return map[string]any{"temperature": viper.GetFloat64("llm.temperature")}
				}),
				agent.WithFallbackFinal(func() *agent.Final {
					return &agent.Final{Output: cat.Apology}
				}),
			)

			profiles := profile.NewManager(sessions, store, cat, logger)
			responder := followup.NewResponder(store, cat, logger)
			scheduler := followup.NewScheduler(followup.Config{
				Interval:     viper.GetDuration("followup.interval"),
				ErrorBackoff: viper.GetDuration("followup.error_backoff"),
			}, store, router, cat, logger)

			disp := dispatch.New(dispatch.Config{
				MaxConcurrent:   viper.GetInt("dispatch.max_concurrent"),
				QueueCap:        viper.GetInt("dispatch.queue_cap"),
				AnalysisTimeout: viper.GetDuration("dispatch.analysis_timeout"),
				HistoryWindow:   viper.GetDuration("dispatch.history_window"),
				HistoryLimit:    viper.GetInt("dispatch.history_limit"),
				ClinicRadiusKm:  viper.GetFloat64("dispatch.clinic_radius_km"),
			}, dispatch.Deps{
				Sessions: sessions,
				Dedup:    seen,
				Profile:  profiles,
				Store:    store,
				Engine:   &modelAnalyzer{engine: engine, model: viper.GetString("llm.model")},
				Sender:   router,
				Clinics:  clinicFinder,
				FollowUp: responder,
				Catalog:  cat,
				Log:      logger,
			})
			defer disp.Close()

			var tg *telegram.Runtime
			if token := strings.TrimSpace(viper.GetString("telegram.bot_token")); token != "" {
				tg, err = telegram.New(telegram.Options{
					BotToken:      token,
					BaseURL:       viper.GetString("telegram.base_url"),
					PollTimeout:   viper.GetDuration("telegram.poll_timeout"),
					MaxImageBytes: viper.GetInt64("telegram.max_image_bytes"),
				}, disp, cat, logger)
				if err != nil {
					return err
				}
				router.Register(dispatch.PlatformTelegram, tg)
			} else {
				logger.Warn("telegram_disabled", "reason", "telegram.bot_token not set")
			}

			var hook *whatsapp.Webhook
			waToken := strings.TrimSpace(viper.GetString("whatsapp.access_token"))
			waPhoneID := strings.TrimSpace(viper.GetString("whatsapp.phone_number_id"))
			waVerify := strings.TrimSpace(viper.GetString("whatsapp.verify_token"))
			if waToken != "" && waPhoneID != "" && waVerify != "" {
				waClient := whatsapp.NewClient(nil, viper.GetString("whatsapp.base_url"), waToken, waPhoneID)
				hook, err = whatsapp.NewWebhook(whatsapp.WebhookOptions{
					VerifyToken:   waVerify,
					MaxImageBytes: viper.GetInt64("whatsapp.max_image_bytes"),
				}, waClient, disp, cat, logger)
				if err != nil {
					return err
				}
				router.Register(dispatch.PlatformWhatsApp, waClient)
			} else {
				logger.Warn("whatsapp_disabled", "reason", "whatsapp.access_token, whatsapp.phone_number_id or whatsapp.verify_token not set")
			}

			if tg == nil && hook == nil {
				return fmt.Errorf("no messaging channel configured (set telegram.bot_token, or whatsapp.access_token + whatsapp.phone_number_id + whatsapp.verify_token)")
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			scheduler.Start(runCtx)
			defer scheduler.Stop()

			mux := http.NewServeMux()
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/" {
					http.NotFound(w, r)
					return
				}
				_ = json.NewEncoder(w).Encode(map[string]any{
					"ok":      true,
					"service": "medsense",
					"time":    time.Now().Format(time.RFC3339Nano),
				})
			})
			if hook != nil {
				path := strings.TrimSpace(viper.GetString("whatsapp.webhook_path"))
				if path == "" {
					path = "/webhook"
				}
				mux.Handle(path, hook)
			}

			addr := bind + ":" + strconv.Itoa(port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			g, gctx := errgroup.WithContext(runCtx)
			if tg != nil {
				g.Go(func() error {
					return tg.Run(gctx)
				})
			}
			g.Go(func() error {
				logger.Info("server_start", "addr", addr)
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			err = g.Wait()
			logger.Info("server_stop")
			return err
		},
	}

	cmd.Flags().String("server-bind", "0.0.0.0", "Bind address for the webhook and health endpoints.")
	cmd.Flags().Int("server-port", 5000, "HTTP port to listen on.")

	return cmd
}

// modelAnalyzer pins the configured model on consultation runs that do
// not choose one themselves.
type modelAnalyzer struct {
	engine *agent.Engine
	model  string
}

func (a *modelAnalyzer) Run(ctx context.Context, task string, opts agent.RunOptions) (*agent.Final, *agent.Context, error) {
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = a.model
	}
	return a.engine.Run(ctx, task, opts)
}

func newToolRegistry(store *db.CachedStore, clinicFinder *clinics.Client, outbreakSource *outbreaks.Client, conditions *meddb.Client) *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(builtin.NewGetUserProfileTool(store))
	reg.Register(builtin.NewSaveUserProfileTool(store))
	reg.Register(builtin.NewSearchMedicalDatabaseTool(conditions))
	reg.Register(builtin.NewWebSearchMedicalTool(
		viper.GetString("search.base_url"),
		viper.GetDuration("search.timeout"),
		viper.GetInt("search.max_results"),
		viper.GetString("search.user_agent"),
	))
	reg.Register(builtin.NewCheckDiseaseOutbreaksTool(store, outbreakSource))
	reg.Register(builtin.NewFindNearbyHospitalsTool(clinicFinder))
	reg.Register(builtin.NewFinalDiagnosisTool(store))
	return reg
}

func catalogFromViper() (messages.Catalog, error) {
	path := strings.TrimSpace(viper.GetString("messages.path"))
	if path == "" {
		return messages.Default(), nil
	}
	return messages.Load(path)
}

func dbConfigFromViper() db.Config {
	cfg := db.DefaultConfig()
	cfg.DSN = viper.GetString("db.dsn")
	return cfg
}
