// Command timblserver is the thin CLI launcher: parse flags, load a
// config file or a single one-off base, pick the wire protocol handler,
// and run the server until signaled. Option parsing and daemonization
// are treated as this collaborator's concern, not the library's (spec
// §6.2's "out of scope: external collaborators").
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/LanguageMachines/timblserver/internal/config"
	"github.com/LanguageMachines/timblserver/internal/protocol/httpx"
	"github.com/LanguageMachines/timblserver/internal/protocol/jsonrpc"
	"github.com/LanguageMachines/timblserver/internal/protocol/text"
	"github.com/LanguageMachines/timblserver/internal/server"
)

const version = "timblserver 1.0.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run implements the exit-code contract of spec.md §6.2: 0 success, 1
// usage, >=2 startup failure.
func run(args []string) int {
	fs := flag.NewFlagSet("timblserver", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath := fs.String("config", "", "path to a [global]/[experiments] configuration file")
	datafile := fs.String("f", "", "instance-base file for a one-off default base")
	treefile := fs.String("i", "", "IGTree file for a one-off default base")
	algo := fs.String("a", "IB1", "algorithm for a one-off default base")
	probfile := fs.String("u", "", "probability file for a one-off default base")
	weightfile := fs.String("w", "", "weight file[:type] for a one-off default base")
	matrixin := fs.String("matrixin", "", "confusion-matrix file for a one-off default base")
	port := fs.String("S", "", "port to listen on (one-off mode)")
	maxConn := fs.Int("C", 10, "maximum simultaneous connections (one-off mode)")
	protocol := fs.String("protocol", "tcp", "wire protocol: tcp, http, or json")
	pidfile := fs.String("pidfile", "", "write the process id to this file")
	logfile := fs.String("logfile", "", "write logs to this file instead of stderr")
	daemonize := fs.String("daemonize", "yes", "yes or no (collaborator flag, not acted on here)")
	showVersion := fs.Bool("V", false, "print version and exit")
	fs.BoolVar(showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}

	if *showVersion {
		fmt.Println(version)
		return 0
	}

	if err := setupLogging(*logfile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	_ = *daemonize // recorded, never acted on: daemonization is a collaborator concern

	if *pidfile != "" {
		if err := os.WriteFile(*pidfile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
			log.Error().Err(err).Str("pidfile", *pidfile).Msg("unable to write pidfile")
			return 2
		}
	}

	cfg, bases, err := loadConfiguration(*configPath, oneOffArgs{
		datafile:   *datafile,
		treefile:   *treefile,
		algorithm:  *algo,
		probfile:   *probfile,
		weightfile: *weightfile,
		matrixin:   *matrixin,
		port:       *port,
		maxConn:    *maxConn,
		protocol:   *protocol,
	})
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return 2
	}

	handler, err := selectHandler(cfg.Protocol)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, bases, handler)
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		return 2
	}
	return 0
}

type oneOffArgs struct {
	datafile, treefile, algorithm, probfile, weightfile, matrixin string
	port                                                          string
	maxConn                                                       int
	protocol                                                      string
}

// loadConfiguration honors --config when given; otherwise it builds a
// single "default" base from -f/-i and the other engine-option flags,
// per spec.md §6.2's "-f <datafile> [-S <port>] [-C <n>]" one-off form.
func loadConfiguration(configPath string, oneOff oneOffArgs) (config.Configuration, *config.BaseMap, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	if oneOff.datafile == "" && oneOff.treefile == "" {
		return config.Configuration{}, nil, fmt.Errorf("one of --config or -f <datafile> is required")
	}
	if oneOff.port == "" {
		return config.Configuration{}, nil, fmt.Errorf("-S <port> is required without --config")
	}

	base, err := config.LoadExperiment("default", oneOffOptionString(oneOff))
	if err != nil {
		return config.Configuration{}, nil, err
	}

	bases := config.NewBaseMap()
	bases.Insert("default", base)

	cfg := config.Configuration{
		Port:      oneOff.port,
		Protocol:  oneOff.protocol,
		MaxConn:   oneOff.maxConn,
		Daemonize: true,
	}
	return cfg, bases, nil
}

func oneOffOptionString(o oneOffArgs) string {
	var parts []string
	if o.algorithm != "" {
		parts = append(parts, "-a", o.algorithm)
	}
	if o.datafile != "" {
		parts = append(parts, "-f", o.datafile)
	}
	if o.treefile != "" {
		parts = append(parts, "-i", o.treefile)
	}
	if o.probfile != "" {
		parts = append(parts, "-u", o.probfile)
	}
	if o.weightfile != "" {
		parts = append(parts, "-w", o.weightfile)
	}
	if o.matrixin != "" {
		parts = append(parts, "--matrixin", o.matrixin)
	}
	return strings.Join(parts, " ")
}

func selectHandler(protocol string) (server.ConnectionHandler, error) {
	switch protocol {
	case "tcp", "":
		return text.New(), nil
	case "http":
		return httpx.New(), nil
	case "json":
		return jsonrpc.New(), nil
	default:
		return nil, fmt.Errorf("unknown protocol: %q", protocol)
	}
}

func setupLogging(logfile string) error {
	if logfile == "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return nil
	}
	f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening logfile: %w", err)
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return nil
}
