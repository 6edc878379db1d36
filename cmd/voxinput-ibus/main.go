//go:build linux

// voxinput-ibus is the Linux IBus engine for voice dictation.
//
// It connects to the voxinput transcription daemon over the D-Bus session
// bus and turns its streaming transcription signals into committed text,
// preedit updates and status labels in the focused application. Recording
// is toggled with a configurable hotkey (default shift+space).
//
// Installation:
//  1. Copy binary to /usr/local/bin/voxinput-ibus
//  2. Run: voxinput-ibus -install
//  3. Restart IBus: ibus restart
//  4. Enable via ibus-setup or GNOME Settings > Keyboard > Input Sources
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"voxinput/internal/config"
	"voxinput/internal/ime"
	"voxinput/internal/logging"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", config.DefaultPath(), "config file path")
	installFlag := flag.Bool("install", false, "install the IBus component and exit")
	uninstallFlag := flag.Bool("uninstall", false, "uninstall the IBus component and exit")
	debugFlag := flag.Bool("debug", false, "force debug logging")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println("voxinput-ibus", version)
		return
	}
	if *installFlag {
		if err := installComponent(); err != nil {
			fmt.Fprintf(os.Stderr, "install failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Installed. Run 'ibus restart' to load the engine.")
		return
	}
	if *uninstallFlag {
		if err := uninstallComponent(); err != nil {
			fmt.Fprintf(os.Stderr, "uninstall failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Uninstalled.")
		return
	}

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := setupLogging(cfg, *debugFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	logging.SetDefault(log)

	// Hotkey or bus changes need an engine restart; log level applies live.
	loader.OnChange(func(newCfg *config.Config) {
		log.Info("config reloaded; bus and hotkey changes apply on restart")
	})
	if err := loader.Watch(); err != nil {
		log.Warn("config watch unavailable", "err", err)
	}
	defer loader.Close()

	engine := ime.New(cfg, log.Logger)
	if err := engine.Start(); err != nil {
		log.Error("engine start failed", "err", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	engine.Stop()
}

func setupLogging(cfg *config.Config, debug bool) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{
		Level:     level,
		Format:    format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "voxinput-ibus",
	}
	if logCfg.FilePath == "" {
		logCfg.FilePath = logging.DefaultLogPath()
	}
	if debug {
		logCfg.Level = slog.LevelDebug
	}
	return logging.New(logCfg)
}

func installComponent() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	componentDir := filepath.Join(home, ".local", "share", "ibus", "component")
	if err := os.MkdirAll(componentDir, 0o755); err != nil {
		return err
	}

	binPath, err := os.Executable()
	if err != nil {
		binPath = "/usr/local/bin/voxinput-ibus"
	}

	componentXML := `<?xml version="1.0" encoding="utf-8"?>
<component>
    <name>io.voxinput.ibus</name>
    <description>Voxinput voice dictation</description>
    <exec>` + binPath + `</exec>
    <version>` + version + `</version>
    <author>Voxinput</author>
    <license>MIT</license>
    <textdomain>voxinput</textdomain>
    <engines>
        <engine>
            <name>` + ime.EngineName + `</name>
            <language>en</language>
            <license>MIT</license>
            <author>Voxinput</author>
            <icon>audio-input-microphone</icon>
            <layout>us</layout>
            <longname>Voxinput</longname>
            <description>Voice dictation input method</description>
            <rank>99</rank>
            <symbol>V</symbol>
        </engine>
    </engines>
</component>`

	return os.WriteFile(filepath.Join(componentDir, "voxinput.xml"), []byte(componentXML), 0o644)
}

func uninstallComponent() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return os.Remove(filepath.Join(home, ".local", "share", "ibus", "component", "voxinput.xml"))
}
