package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cjeanneret/snapcam/internal/config"
	"github.com/cjeanneret/snapcam/internal/debug"
	"github.com/cjeanneret/snapcam/internal/hw/camera"
	"github.com/cjeanneret/snapcam/internal/hw/flash"
	"github.com/cjeanneret/snapcam/internal/hw/gpio"
	"github.com/cjeanneret/snapcam/internal/hw/network"
	"github.com/cjeanneret/snapcam/internal/hw/storage"
	"github.com/cjeanneret/snapcam/internal/logic/capture"
	"github.com/cjeanneret/snapcam/internal/logic/token"
	"github.com/cjeanneret/snapcam/internal/web"
)

func main() {
	// CLI flags
	cfgPath := flag.String("config", "", "path to a YAML config file; empty uses compiled-in defaults")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	// Initialize GPIO driver and the flash output
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()
	led, err := flash.New(gpioDriver, cfg.Flash.Pin)
	if err != nil {
		log.Fatalf("init flash failed: %v", err)
	}

	// Join the network; no timeout
	debug.Step(2, "Joining network")
	link := network.NewLink(cfg.Network.Mock, cfg.Network.Interface, cfg.Network.JoinCommand)
	ip, err := network.Join(ctx, link, cfg.Network.SSID, cfg.Network.Password, cfg.LinkPoll(), progressWriter(debug.Level()))
	if err != nil {
		log.Printf("network join interrupted: %v", err)
		return
	}
	debug.Info("IP: %s", ip)

	// Camera and storage failures leave the service running degraded
	debug.Step(3, "Initializing camera")
	cam := openCamera(cfg)

	debug.Step(4, "Mounting storage")
	vol := mountStorage(cfg)
	defer vol.Unmount()

	seq := capture.NewSequence(led, cam, vol, cfg.FlashWarmup())
	handlers := web.NewHandlers(seq, token.NewSystemClock())
	srv := web.NewServer(cfg.ListenAddr(), handlers, cfg.ReadTimeout())

	debug.Summary("snapcam ready")
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// openCamera returns the configured camera, or an always-failing one when
// initialization fails.
func openCamera(cfg *config.Config) camera.Camera {
	cam, err := newCameraFromConfig(cfg)
	if err != nil {
		debug.Info("CAM FAIL")
		debug.Error(err)
		return camera.Unavailable{Err: err}
	}
	debug.Info("CAM OK")
	debug.Value("Camera type", cfg.Camera.Type)
	debug.Value("Frame size", cfg.Camera.FrameSize)
	debug.Value("JPEG quality", cfg.Camera.JPEGQuality)
	debug.PrintStruct("Camera pins", cfg.Camera.Pins)
	return cam
}

// mountStorage mounts the volume and prints the init status lines.
func mountStorage(cfg *config.Config) *storage.Volume {
	vol, err := storage.Mount(cfg.Storage.Root, cfg.Storage.OneBitMode)
	if err != nil {
		debug.Info("%s", mountFailure(err))
		debug.Verbose("Storage: %v", err)
		debug.Info("SD ERROR")
		return vol
	}
	debug.Info("SD OK (%s)", busMode(cfg.Storage.OneBitMode))
	debug.Info("SD READY")
	return vol
}

func mountFailure(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, storage.ErrNoCard) {
		return "No SD card detected"
	}
	return "SD mount FAILED"
}

func busMode(oneBit bool) string {
	if oneBit {
		return "1-bit mode"
	}
	return "4-bit mode"
}

// newCameraFromConfig selects a camera implementation based on configuration.
func newCameraFromConfig(cfg *config.Config) (camera.Camera, error) {
	w, h, err := cfg.FrameDimensions()
	if err != nil {
		return nil, err
	}
	switch cfg.Camera.Type {
	case "synthetic":
		cam, err := camera.NewSynthetic(w, h, cfg.Camera.JPEGQuality, cfg.Camera.FBCount)
		if err != nil {
			return nil, err
		}
		return cam, nil
	case "command":
		cam, err := camera.NewCommand(cfg.Camera.Command, w, h, cfg.Camera.JPEGQuality, cfg.Camera.FBCount, 10*time.Second)
		if err != nil {
			return nil, err
		}
		return cam, nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}

// progressWriter returns where join progress dots go; silent at level 0.
func progressWriter(level int) io.Writer {
	if level == debug.LevelOff {
		return io.Discard
	}
	return os.Stdout
}
