package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newHelperCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "t"}
	cmd.Flags().String("server-bind", "0.0.0.0", "")
	cmd.Flags().Int("server-port", 5000, "")
	return cmd
}

func TestFlagOrViperStringPrefersChangedFlag(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("server.bind", "10.0.0.1")

	cmd := newHelperCmd()
	if err := cmd.Flags().Set("server-bind", "127.0.0.1"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if got := flagOrViperString(cmd, "server-bind", "server.bind"); got != "127.0.0.1" {
		t.Fatalf("changed flag should win, got %q", got)
	}
}

func TestFlagOrViperStringFallsBackToViper(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("server.bind", "10.0.0.1")

	cmd := newHelperCmd()
	if got := flagOrViperString(cmd, "server-bind", "server.bind"); got != "10.0.0.1" {
		t.Fatalf("viper value should win over the flag default, got %q", got)
	}
}

func TestFlagOrViperIntUsesFlagDefault(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := newHelperCmd()
	if got := flagOrViperInt(cmd, "server-port", "server.port"); got != 5000 {
		t.Fatalf("flag default expected, got %d", got)
	}
}

func TestInitViperDefaultsSeedsServiceKeys(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	initViperDefaults()

	if got := viper.GetInt("server.port"); got != 5000 {
		t.Fatalf("server.port default = %d", got)
	}
	if got := viper.GetString("llm.model"); got != "gemini-2.5-flash" {
		t.Fatalf("llm.model default = %q", got)
	}
	if got := viper.GetDuration("session.inactivity"); got != 48*time.Hour {
		t.Fatalf("session.inactivity default = %v", got)
	}
	if got := viper.GetString("whatsapp.webhook_path"); got != "/webhook" {
		t.Fatalf("whatsapp.webhook_path default = %q", got)
	}
}
