package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a YAML config under a temp configs/ directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "configs")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "device.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ---------- ValidateConfigPath ----------

func TestValidateConfigPath_Valid(t *testing.T) {
	cases := []string{
		"configs/default.yaml",
		"/etc/snapcam/device.yaml",
		"device.yaml",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err != nil {
			t.Errorf("expected %q to be valid, got: %v", path, err)
		}
	}
}

func TestValidateConfigPath_PathTraversal(t *testing.T) {
	cases := []string{
		"../../etc/passwd.yaml",
		"configs/../../../etc/shadow.yaml",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for traversal path %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_WrongExtension(t *testing.T) {
	cases := []string{
		"configs/default.json",
		"configs/default.yml",
		"configs/default",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for extension in %q, got nil", path)
		}
	}
}

func TestValidateConfigPath_EmptyPath(t *testing.T) {
	if err := ValidateConfigPath(""); err == nil {
		t.Error("expected error for empty path, got nil")
	}
}

// ---------- Load ----------

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Flash.Pin != 33 {
		t.Errorf("flash pin = %d, want 33", cfg.Flash.Pin)
	}
	if cfg.Server.Port != 80 {
		t.Errorf("server port = %d, want 80", cfg.Server.Port)
	}
	if cfg.Listener.Addr != "0.0.0.0:4210" {
		t.Errorf("listener addr = %q, want 0.0.0.0:4210", cfg.Listener.Addr)
	}
	if cfg.Listener.BufferSize != 1024 {
		t.Errorf("listener buffer = %d, want 1024", cfg.Listener.BufferSize)
	}
	if !cfg.Storage.OneBitMode {
		t.Error("storage should default to 1-bit mode")
	}
	if cfg.Camera.Pins.Reset != -1 {
		t.Errorf("camera reset pin = %d, want -1", cfg.Camera.Pins.Reset)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
network:
  ssid: workshop
  password: hunter2
flash:
  pin: 17
  warmup_ms: 80
camera:
  type: synthetic
  frame_size: vga
  jpeg_quality: 10
storage:
  root: /mnt/photos
server:
  port: 8080
defaults:
  debug_level: 3
  mock_gpio: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Network.SSID != "workshop" || cfg.Network.Password != "hunter2" {
		t.Errorf("credentials = %q/%q", cfg.Network.SSID, cfg.Network.Password)
	}
	if cfg.Flash.Pin != 17 {
		t.Errorf("flash pin = %d, want 17", cfg.Flash.Pin)
	}
	if cfg.FlashWarmup() != 80*time.Millisecond {
		t.Errorf("FlashWarmup() = %v, want 80ms", cfg.FlashWarmup())
	}
	if cfg.Storage.Root != "/mnt/photos" {
		t.Errorf("storage root = %q", cfg.Storage.Root)
	}
	if cfg.ListenAddr() != ":8080" {
		t.Errorf("ListenAddr() = %q, want :8080", cfg.ListenAddr())
	}
	if !cfg.Defaults.MockGPIO || cfg.Defaults.DebugLevel != 3 {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	// untouched fields keep their compiled-in value
	if cfg.Server.ReadTimeoutMs != 1000 {
		t.Errorf("read timeout = %d, want 1000", cfg.Server.ReadTimeoutMs)
	}
	w, h, err := cfg.FrameDimensions()
	if err != nil || w != 640 || h != 480 {
		t.Errorf("FrameDimensions() = %d, %d, %v; want 640, 480, nil", w, h, err)
	}
}

func TestLoad_ZeroValuesGetDefaults(t *testing.T) {
	path := writeConfig(t, `
network:
  poll_ms: 0
camera:
  fb_count: 0
server:
  read_timeout_ms: 0
listener:
  addr: ""
  buffer_size: 0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LinkPoll() != 250*time.Millisecond {
		t.Errorf("LinkPoll() = %v, want 250ms", cfg.LinkPoll())
	}
	if cfg.ReadTimeout() != time.Second {
		t.Errorf("ReadTimeout() = %v, want 1s", cfg.ReadTimeout())
	}
	if cfg.Camera.FBCount != 1 {
		t.Errorf("fb_count = %d, want 1", cfg.Camera.FBCount)
	}
	if cfg.Listener.Addr != "0.0.0.0:4210" || cfg.Listener.BufferSize != 1024 {
		t.Errorf("listener = %+v", cfg.Listener)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty_camera_type", "camera:\n  type: \"\"\n", "camera.type"},
		{"bad_frame_size", "camera:\n  frame_size: 8K\n", "frame_size"},
		{"quality_too_high", "camera:\n  jpeg_quality: 64\n", "jpeg_quality"},
		{"quality_negative", "camera:\n  jpeg_quality: -1\n", "jpeg_quality"},
		{"command_without_argv", "camera:\n  type: command\n  command: []\n", "camera.command"},
		{"empty_storage_root", "storage:\n  root: \"\"\n", "storage.root"},
		{"port_too_large", "server:\n  port: 70000\n", "server.port"},
		{"negative_warmup", "flash:\n  warmup_ms: -5\n", "warmup_ms"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.yaml)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_JoinCommand(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want []string
	}{
		{"default", "", []string{"nmcli", "dev", "wifi", "connect", "{ssid}", "password", "{password}", "ifname", "{iface}"}},
		{"override", "network:\n  join_command: [wpa_cli, -i, \"{iface}\", reconnect]\n", []string{"wpa_cli", "-i", "{iface}", "reconnect"}},
		{"left_to_os", "network:\n  join_command: []\n", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := ""
			if tc.yaml != "" {
				path = writeConfig(t, tc.yaml)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if strings.Join(cfg.Network.JoinCommand, " ") != strings.Join(tc.want, " ") || len(cfg.Network.JoinCommand) != len(tc.want) {
				t.Errorf("join_command = %q, want %q", cfg.Network.JoinCommand, tc.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "read config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "network: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

// ---------- LoadEnv ----------

func TestLoadEnv_EnvironmentOverridesCredentials(t *testing.T) {
	t.Setenv(EnvWiFiSSID, "from-env")
	t.Setenv(EnvWiFiPass, "secret")

	cfg := Default()
	if err := LoadEnv(cfg, ""); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if cfg.Network.SSID != "from-env" || cfg.Network.Password != "secret" {
		t.Errorf("credentials = %q/%q", cfg.Network.SSID, cfg.Network.Password)
	}
}

func TestLoadEnv_DotEnvFile(t *testing.T) {
	// godotenv never overrides a variable that is already present, even
	// when empty; register restore with Setenv, then remove them.
	t.Setenv(EnvWiFiSSID, "")
	t.Setenv(EnvWiFiPass, "")
	os.Unsetenv(EnvWiFiSSID)
	os.Unsetenv(EnvWiFiPass)

	envFile := filepath.Join(t.TempDir(), ".env")
	content := EnvWiFiSSID + "=dotenv-ssid\n" + EnvWiFiPass + "=dotenv-pass\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := LoadEnv(cfg, envFile); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if cfg.Network.SSID != "dotenv-ssid" || cfg.Network.Password != "dotenv-pass" {
		t.Errorf("credentials = %q/%q", cfg.Network.SSID, cfg.Network.Password)
	}
}

func TestLoadEnv_MissingFileIgnored(t *testing.T) {
	cfg := Default()
	if err := LoadEnv(cfg, filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("missing env file should be ignored, got: %v", err)
	}
}
