package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the network credentials.
const (
	EnvWiFiSSID = "SNAPCAM_WIFI_SSID"
	EnvWiFiPass = "SNAPCAM_WIFI_PASS"
)

// NetworkConfig holds the credentials and link detection settings.
type NetworkConfig struct {
	SSID      string `yaml:"ssid"`
	Password  string `yaml:"password"`
	Interface string `yaml:"interface"` // network interface watched for an IPv4 address, e.g. "wlan0"
	PollMs    int    `yaml:"poll_ms"`   // delay between link checks while joining
	Mock      bool   `yaml:"mock"`      // report the link as up on loopback (dev/test)
	// JoinCommand is the argv run once to start association. {ssid},
	// {password} and {iface} are substituted. Empty leaves the join to
	// the operating system.
	JoinCommand []string `yaml:"join_command"`
}

// FlashConfig describes the illumination output.
type FlashConfig struct {
	Pin      int `yaml:"pin"`       // GPIO pin driving the flash LED. Active HIGH.
	WarmupMs int `yaml:"warmup_ms"` // delay between flash on and frame grab
}

// CameraPins is the sensor wiring. Unused by the synthetic and command
// drivers but kept so a board description lives in one place.
type CameraPins struct {
	PWDN  int `yaml:"pwdn"`
	Reset int `yaml:"reset"` // -1 = not connected
	XCLK  int `yaml:"xclk"`
	SIOD  int `yaml:"siod"`
	SIOC  int `yaml:"sioc"`
	Y9    int `yaml:"y9"`
	Y8    int `yaml:"y8"`
	Y7    int `yaml:"y7"`
	Y6    int `yaml:"y6"`
	Y5    int `yaml:"y5"`
	Y4    int `yaml:"y4"`
	Y3    int `yaml:"y3"`
	Y2    int `yaml:"y2"`
	VSYNC int `yaml:"vsync"`
	HREF  int `yaml:"href"`
	PCLK  int `yaml:"pclk"`
}

// CameraConfig selects the camera driver and its capture parameters.
// Type selects a concrete implementation ("synthetic" or "command").
type CameraConfig struct {
	Type        string     `yaml:"type"`
	Pins        CameraPins `yaml:"pins"`
	XCLKFreqHz  int        `yaml:"xclk_freq_hz"`
	FrameSize   string     `yaml:"frame_size"`   // QQVGA, QVGA, VGA, SVGA, XGA, HD, SXGA, UXGA
	JPEGQuality int        `yaml:"jpeg_quality"` // 0-63, lower means better quality
	FBCount     int        `yaml:"fb_count"`     // frame buffers owned by the driver
	Command     []string   `yaml:"command"`      // argv for the "command" driver; JPEG on stdout
}

// StorageConfig describes the volume photos are written to.
type StorageConfig struct {
	Root       string `yaml:"root"`         // mount point, e.g. "/sdcard"
	OneBitMode bool   `yaml:"one_bit_mode"` // reduced pin count bus mode
}

// ServerConfig holds the capture listener settings.
type ServerConfig struct {
	Port          int `yaml:"port"`
	ReadTimeoutMs int `yaml:"read_timeout_ms"` // wait for the first byte after accept
}

// ListenerConfig holds the datagram logger settings.
type ListenerConfig struct {
	Addr       string `yaml:"addr"`
	BufferSize int    `yaml:"buffer_size"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Network  NetworkConfig  `yaml:"network"`
	Flash    FlashConfig    `yaml:"flash"`
	Camera   CameraConfig   `yaml:"camera"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Listener ListenerConfig `yaml:"listener"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Default returns the compiled-in configuration (AI Thinker board wiring).
func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			SSID:      "xxxxxx",
			Password:  "xxxxxx",
			Interface: "wlan0",
			PollMs:    250,
			JoinCommand: []string{
				"nmcli", "dev", "wifi", "connect", "{ssid}",
				"password", "{password}", "ifname", "{iface}",
			},
		},
		Flash: FlashConfig{
			Pin:      33, // GPIO 4 conflicts with the SD bus
			WarmupMs: 60,
		},
		Camera: CameraConfig{
			Type: "synthetic",
			Pins: CameraPins{
				PWDN: 32, Reset: -1, XCLK: 0, SIOD: 26, SIOC: 27,
				Y9: 35, Y8: 34, Y7: 39, Y6: 36, Y5: 21, Y4: 19, Y3: 18, Y2: 5,
				VSYNC: 25, HREF: 23, PCLK: 22,
			},
			XCLKFreqHz:  20000000,
			FrameSize:   "SVGA",
			JPEGQuality: 12,
			FBCount:     1,
			Command:     []string{"rpicam-still", "-n", "-e", "jpg", "-o", "-"},
		},
		Storage: StorageConfig{
			Root:       "/sdcard",
			OneBitMode: true,
		},
		Server: ServerConfig{
			Port:          80,
			ReadTimeoutMs: 1000,
		},
		Listener: ListenerConfig{
			Addr:       "0.0.0.0:4210",
			BufferSize: 1024,
		},
		Defaults: DefaultsConfig{
			DebugLevel: 1,
		},
	}
}

// ValidateConfigPath checks that path names a .yaml file and does not
// contain parent directory references.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config path must end in .yaml, got %q", path)
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path must not contain '..': %q", path)
		}
	}
	return nil
}

// Load returns the configuration. An empty path yields the compiled-in
// defaults; otherwise the YAML file is read over them. Environment
// overrides for the credentials are applied last in both cases.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := ValidateConfigPath(path); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	}

	if err := LoadEnv(cfg, ".env"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads envFile into the process environment (a missing file is
// not an error) and applies the credential overrides.
func LoadEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	if v := os.Getenv(EnvWiFiSSID); v != "" {
		cfg.Network.SSID = v
	}
	if v := os.Getenv(EnvWiFiPass); v != "" {
		cfg.Network.Password = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.Camera.Type == "" {
		return fmt.Errorf("camera.type is required")
	}
	if _, _, err := c.FrameDimensions(); err != nil {
		return err
	}
	if c.Camera.JPEGQuality < 0 || c.Camera.JPEGQuality > 63 {
		return fmt.Errorf("camera.jpeg_quality must be between 0 and 63, got %d", c.Camera.JPEGQuality)
	}
	if c.Camera.FBCount <= 0 {
		c.Camera.FBCount = 1
	}
	if c.Camera.Type == "command" && len(c.Camera.Command) == 0 {
		return fmt.Errorf("camera.command is required for camera type %q", c.Camera.Type)
	}
	if c.Storage.Root == "" {
		return fmt.Errorf("storage.root is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeoutMs <= 0 {
		c.Server.ReadTimeoutMs = 1000
	}
	if c.Network.PollMs <= 0 {
		c.Network.PollMs = 250
	}
	if c.Flash.WarmupMs < 0 {
		return fmt.Errorf("flash.warmup_ms must be >= 0, got %d", c.Flash.WarmupMs)
	}
	if c.Listener.Addr == "" {
		c.Listener.Addr = "0.0.0.0:4210"
	}
	if c.Listener.BufferSize <= 0 {
		c.Listener.BufferSize = 1024
	}
	return nil
}

// frameSizes maps sensor frame size names to pixel dimensions.
var frameSizes = map[string][2]int{
	"QQVGA": {160, 120},
	"QVGA":  {320, 240},
	"VGA":   {640, 480},
	"SVGA":  {800, 600},
	"XGA":   {1024, 768},
	"HD":    {1280, 720},
	"SXGA":  {1280, 1024},
	"UXGA":  {1600, 1200},
}

// FrameDimensions returns the width and height of the configured frame size.
func (c *Config) FrameDimensions() (int, int, error) {
	d, ok := frameSizes[strings.ToUpper(c.Camera.FrameSize)]
	if !ok {
		return 0, 0, fmt.Errorf("unsupported camera.frame_size: %q", c.Camera.FrameSize)
	}
	return d[0], d[1], nil
}

// FlashWarmup returns the delay between flash on and frame grab.
func (c *Config) FlashWarmup() time.Duration {
	return time.Duration(c.Flash.WarmupMs) * time.Millisecond
}

// LinkPoll returns the delay between two link checks.
func (c *Config) LinkPoll() time.Duration {
	return time.Duration(c.Network.PollMs) * time.Millisecond
}

// ReadTimeout returns how long an accepted connection may stay silent.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutMs) * time.Millisecond
}

// ListenAddr returns the capture listener address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
