package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Logging
	viper.SetDefault("log.level", "")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.add_source", false)

	// Webhook + health HTTP server
	viper.SetDefault("server.bind", "0.0.0.0")
	viper.SetDefault("server.port", 5000)

	// Database (empty DSN resolves to the default location under state.dir)
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("state.dir", "")

	// LLM
	viper.SetDefault("llm.provider", "gemini")
	viper.SetDefault("llm.endpoint", "")
	viper.SetDefault("llm.model", "gemini-2.5-flash")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.request_timeout", 90*time.Second)
	viper.SetDefault("llm.tools_emulation_mode", "off")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.debug", false)

	// Consultation loop
	viper.SetDefault("agent.max_steps", 10)
	viper.SetDefault("agent.parse_retries", 2)
	viper.SetDefault("agent.max_token_budget", 0)

	// Sessions and duplicate suppression
	viper.SetDefault("session.inactivity", 48*time.Hour)
	viper.SetDefault("dedup.window", 5*time.Minute)

	// Dispatch
	viper.SetDefault("dispatch.max_concurrent", 8)
	viper.SetDefault("dispatch.queue_cap", 16)
	viper.SetDefault("dispatch.analysis_timeout", 5*time.Minute)
	viper.SetDefault("dispatch.history_window", 365*24*time.Hour)
	viper.SetDefault("dispatch.history_limit", 5)
	viper.SetDefault("dispatch.clinic_radius_km", 5.0)

	// Follow-up check-ins
	viper.SetDefault("followup.interval", 5*time.Minute)
	viper.SetDefault("followup.error_backoff", time.Minute)

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.base_url", "")
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)
	viper.SetDefault("telegram.max_image_bytes", int64(20*1024*1024))

	// WhatsApp Cloud API
	viper.SetDefault("whatsapp.access_token", "")
	viper.SetDefault("whatsapp.phone_number_id", "")
	viper.SetDefault("whatsapp.verify_token", "")
	viper.SetDefault("whatsapp.base_url", "")
	viper.SetDefault("whatsapp.webhook_path", "/webhook")
	viper.SetDefault("whatsapp.max_image_bytes", int64(20*1024*1024))

	// Clinic lookups
	viper.SetDefault("clinics.overpass_url", "https://overpass-api.de/api/interpreter")
	viper.SetDefault("clinics.nominatim_url", "https://nominatim.openstreetmap.org")
	viper.SetDefault("clinics.user_agent", "MedSenseAI/1.0")
	viper.SetDefault("clinics.timeout", 30*time.Second)
	viper.SetDefault("clinics.geocode_interval", time.Second)

	// WHO outbreak monitoring
	viper.SetDefault("outbreaks.url", "https://extranet.who.int/publicemergency/api/events")
	viper.SetDefault("outbreaks.timeout", 10*time.Second)

	// EndlessMedical condition database
	viper.SetDefault("meddb.base_url", "https://api.endlessmedical.com/v1/dx")
	viper.SetDefault("meddb.timeout", 15*time.Second)

	// Medical web search
	viper.SetDefault("search.base_url", "https://duckduckgo.com/html/")
	viper.SetDefault("search.timeout", 20*time.Second)
	viper.SetDefault("search.max_results", 5)
	viper.SetDefault("search.user_agent", "MedSenseAI/1.0")

	// Reply texts (optional YAML overrides)
	viper.SetDefault("messages.path", "")
}
