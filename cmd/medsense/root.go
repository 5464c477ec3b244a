package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "MEDSENSE"

func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medsense",
		Short: "Medical assistant chat bot for WhatsApp and Telegram",
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().String("config", "", "Config file path (optional).")
	_ = viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))

	cmd.PersistentFlags().String("log-level", "", "Logging level: debug|info|warn|error (defaults to info).")
	cmd.PersistentFlags().String("log-format", "text", "Logging format: text|json.")
	cmd.PersistentFlags().Bool("log-add-source", false, "Include source file:line in logs.")

	_ = viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", cmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("log.add_source", cmd.PersistentFlags().Lookup("log-add-source"))

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newFollowupsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func initConfig() {
	// A .env file configures local runs the same way env vars configure
	// the hosted deployment.
	_ = godotenv.Load()

	initViperDefaults()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// Bare env names from earlier deployments keep working alongside the
	// MEDSENSE_* forms.
	_ = viper.BindEnv("llm.api_key", "MEDSENSE_LLM_API_KEY", "GEMINI_API_KEY")
	_ = viper.BindEnv("telegram.bot_token", "MEDSENSE_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = viper.BindEnv("whatsapp.access_token", "MEDSENSE_WHATSAPP_ACCESS_TOKEN", "WHATSAPP_TOKEN")
	_ = viper.BindEnv("whatsapp.phone_number_id", "MEDSENSE_WHATSAPP_PHONE_NUMBER_ID", "PHONE_NUMBER_ID")
	_ = viper.BindEnv("whatsapp.verify_token", "MEDSENSE_WHATSAPP_VERIFY_TOKEN", "VERIFY_TOKEN")
	_ = viper.BindEnv("server.port", "MEDSENSE_SERVER_PORT", "PORT")

	cfgFile := strings.TrimSpace(viper.GetString("config"))
	if cfgFile == "" {
		return
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
	}
}
