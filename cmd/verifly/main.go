package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/verifly/verifly-go/internal/config"
	"github.com/verifly/verifly-go/internal/logger"
)

func main() {
	global := flag.NewFlagSet("verifly", flag.ExitOnError)
	configFile := global.String("config", "", "Path to configuration file")
	envPath := global.String("env", "config/", "Path to environment files")
	debug := global.Bool("debug", false, "Log signed requests and responses")
	global.Usage = func() { usage(global.Output()) }
	_ = global.Parse(os.Args[1:])

	if global.NArg() == 0 {
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.LoadCLIConfig(*configFile, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Debug = cfg.Debug || *debug

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "verifly-cli",
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, in: os.Stdin, out: os.Stdout}
	if err := a.run(ctx, global.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: verifly [-config file] [-env dir] [-debug] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-14s %s\n", c.name, c.summary)
	}
}
