package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"sort"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-session/client"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, colour(Red, "error: ")+err.Error())
		}
		stop()
		os.Exit(1)
	}
}

// app is what every command runs against.
type app struct {
	cfg    config.Config
	client *client.Client
	out    io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	global := flag.NewFlagSet("scopectl", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", config.GetEnv("SCOPE_CONFIG", "scope.yaml"), "path to the YAML config file")
	showMetrics := global.Bool("metrics", false, "print request counters after the command")
	global.Usage = func() { usage(stderr, global) }
	if err := global.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg, stderr)

	if global.NArg() == 0 {
		displayAppname(stderr, cfg.GetAppName())
		global.Usage()
		return flag.ErrHelp
	}
	name, cmdArgs := global.Arg(0), global.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		global.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	store, closeStore, err := client.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn().Err(err).Msg("failed to close session store")
		}
	}()

	c, err := client.New(cfg, store, client.WithLogger(logger))
	if err != nil {
		return err
	}

	a := &app{cfg: cfg, client: c, out: stdout}
	returnError = cmd.run(ctx, a, cmdArgs)
	if *showMetrics {
		printMetrics(stdout, c)
	}
	return returnError
}

func setupLogging(cfg config.EnvConfig, stderr io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.GetEnv() == "DEV" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(stderr).With().Timestamp().Logger()
	}
	logger = logger.Level(level)
	log.Logger = logger
	return logger
}

func usage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintln(w, "usage: scopectl [flags] <command> [command flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags:")
	global.PrintDefaults()
}

func printMetrics(w io.Writer, c *client.Client) {
	families, err := c.Registry().Gather()
	if err != nil {
		fmt.Fprintln(w, colour(Red, "metrics unavailable: ")+err.Error())
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			outcome := ""
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
				outcome = l.GetValue()
			}
			line := fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
			fmt.Fprintln(w, colour(outcomeColors[outcome], line))
		}
	}
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}
