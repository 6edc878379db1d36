// voxinputctl controls and inspects the voxinput transcription daemon.
//
// Usage:
//
//	voxinputctl status              daemon recording state
//	voxinputctl start               start recording
//	voxinputctl stop                stop recording
//	voxinputctl history [-n N]      recent committed transcripts
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"voxinput/internal/config"
	"voxinput/internal/history"
	"voxinput/internal/voicebus"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "config file path")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	switch flag.Arg(0) {
	case "status":
		cmdStatus(cfg)
	case "start":
		cmdCall(cfg, "start", func(c *voicebus.Conn) error { return c.StartRecording() })
	case "stop":
		cmdCall(cfg, "stop", func(c *voicebus.Conn) error { return c.StopRecording() })
	case "history":
		cmdHistory(cfg, flag.Args()[1:])
	default:
		fatalf("unknown command %q", flag.Arg(0))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: voxinputctl [-config FILE] <status|start|stop|history>")
	flag.PrintDefaults()
}

func connect(cfg *config.Config) *voicebus.Conn {
	conn, err := voicebus.Connect(voicebus.Options{
		Service:     cfg.Bus.Service,
		Path:        cfg.Bus.Path,
		Interface:   cfg.Bus.Interface,
		CallTimeout: cfg.Bus.CallTimeout(),
	}, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	if err != nil {
		fatalf("connect: %v", err)
	}
	return conn
}

func cmdStatus(cfg *config.Config) {
	conn := connect(cfg)
	defer conn.Disconnect()

	status, err := conn.GetStatus()
	if err != nil {
		fatalf("get status: %v\n  is the transcription daemon running?", err)
	}
	fmt.Println(status)
}

func cmdCall(cfg *config.Config, name string, call func(*voicebus.Conn) error) {
	conn := connect(cfg)
	defer conn.Disconnect()

	if err := call(conn); err != nil {
		fatalf("%s recording: %v", name, err)
	}
	fmt.Println("ok")
}

func cmdHistory(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("n", 20, "number of entries to show")
	fs.Parse(args)

	if !cfg.History.Enabled {
		fatalf("history is disabled in the configuration")
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		fatalf("open history: %v", err)
	}
	defer store.Close()

	entries, err := store.Recent(*limit)
	if err != nil {
		fatalf("read history: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("no transcripts recorded")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Text)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "voxinputctl: "+format+"\n", args...)
	os.Exit(1)
}
