package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:     AppConfig{Env: "local", Port: 8080},
		LiveKit: LiveKitConfig{URL: "wss://example.livekit.cloud", APIKey: "key", APISecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV", "LIVEKIT_URL", "LIVEKIT_API_KEY", "LIVEKIT_API_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err.Error())
		}
	}
}

func TestValidate_AppliesDefaults(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.LiveKit.AgentName != "voice-agent" {
		t.Fatalf("unexpected agent default %q", c.LiveKit.AgentName)
	}
	if c.Room.EmptyTimeout != 300*time.Second {
		t.Fatalf("unexpected empty timeout %v", c.Room.EmptyTimeout)
	}
	if c.Webhook.Path != "/webhook/call" {
		t.Fatalf("unexpected webhook path %q", c.Webhook.Path)
	}
	if c.CallLog.Backend != CallLogBackendStdout || c.CallLog.QueueSize != 256 {
		t.Fatalf("unexpected call log defaults %+v", c.CallLog)
	}
}

func TestValidate_RejectsEmptyTimeoutPastWireRange(t *testing.T) {
	c := validConfig()
	c.Room.EmptyTimeout = MaxRoomEmptyTimeout + time.Second
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "ROOM_EMPTY_TIMEOUT") {
		t.Fatalf("expected ROOM_EMPTY_TIMEOUT error, got %v", err)
	}

	c = validConfig()
	c.Room.EmptyTimeout = MaxRoomEmptyTimeout
	if err := c.Validate(); err != nil {
		t.Fatalf("expected the wire maximum to be accepted, got %v", err)
	}
}

func TestValidate_ProductionRequiresWebhookSecret(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "WEBHOOK_SECRET") {
		t.Fatalf("expected WEBHOOK_SECRET error, got %v", err)
	}
}

func TestValidate_PostgresBackendRequiresDB(t *testing.T) {
	c := validConfig()
	c.CallLog.Backend = CallLogBackendPostgres
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for postgres backend without DB settings")
	}

	c = validConfig()
	c.CallLog.Backend = CallLogBackendPostgres
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "calls"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	c := validConfig()
	c.CallLog.Backend = "kafka"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLoad_AcceptsShortLiveKitNames(t *testing.T) {
	for _, k := range []string{"LIVEKIT_URL", "LIVEKIT_API_KEY", "LIVEKIT_API_SECRET", "APP_PORT", "CALL_LOG_BACKEND"} {
		t.Setenv(k, "")
	}
	t.Setenv("APP_ENV", "dev")
	t.Setenv("LK_URL", "ws://localhost:7880")
	t.Setenv("LK_API_KEY", "devkey")
	t.Setenv("LK_API_SECRET", "devsecret")
	t.Setenv("BLOCKED_NUMBERS", " +15555555555, ,+1900")
	t.Setenv("ROOM_EMPTY_TIMEOUT", "120")
	t.Setenv("CALL_TIMEOUT", "8s")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.LiveKit.URL != "ws://localhost:7880" || c.LiveKit.APIKey != "devkey" {
		t.Fatalf("unexpected livekit config %+v", c.LiveKit)
	}
	if len(c.Blocklist.Numbers) != 2 || c.Blocklist.Numbers[0] != "+15555555555" {
		t.Fatalf("unexpected blocklist %q", c.Blocklist.Numbers)
	}
	if c.Room.EmptyTimeout != 120*time.Second {
		t.Fatalf("expected bare seconds to parse, got %v", c.Room.EmptyTimeout)
	}
	if c.Webhook.CallTimeout != 8*time.Second {
		t.Fatalf("unexpected call timeout %v", c.Webhook.CallTimeout)
	}
}

func TestLoad_ReportsBadNumbers(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "eighty")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "APP_PORT") {
		t.Fatalf("expected APP_PORT parse error, got %v", err)
	}
}
