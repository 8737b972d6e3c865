package config

import (
	"errors"
	"fmt"
)

var (
	ErrMissingPort          = errors.New("config: [global] section missing required \"port\" key")
	ErrNoExperimentsStarted = errors.New("config: no experiments could be started")
	ErrMissingTrainOrTree   = errors.New("config: missing '-i' or '-f' option")
	ErrBothTrainAndTree     = errors.New("config: '-i' and '-f' are mutually exclusive")
	ErrProbFileWithIGTree   = errors.New("config: '-u' is not allowed with '-a IGTREE'")
)

// Configuration is the immutable server-level configuration, §6.1's
// `[global]` section. Populated once at startup and never mutated
// afterward, matching the teacher's treatment of its engine's Books map.
type Configuration struct {
	Port      string
	Protocol  string // "tcp", "http", or "json"
	LogFile   string
	PIDFile   string
	Daemonize bool
	Debug     bool
	MaxConn   int
	ConfigDir string
}

var reservedGlobalKeys = map[string]bool{
	"port":      true,
	"protocol":  true,
	"logfile":   true,
	"pidfile":   true,
	"daemonize": true,
	"debug":     true,
	"maxconn":   true,
	"configDir": true,
}

const defaultMaxConn = 10

func parseGlobal(f *iniFile) (Configuration, error) {
	cfg := Configuration{
		Protocol:  "tcp",
		Daemonize: true,
		MaxConn:   defaultMaxConn,
	}

	port, ok := f.get("global", "port")
	if !ok || port == "" {
		return Configuration{}, ErrMissingPort
	}
	cfg.Port = port

	if v, ok := f.get("global", "protocol"); ok && v != "" {
		cfg.Protocol = v
	}
	if v, ok := f.get("global", "logfile"); ok {
		cfg.LogFile = v
	}
	if v, ok := f.get("global", "pidfile"); ok {
		cfg.PIDFile = v
	}
	if v, ok := f.get("global", "daemonize"); ok {
		cfg.Daemonize = v != "no"
	}
	if v, ok := f.get("global", "debug"); ok {
		cfg.Debug = v == "yes" || v == "true" || v == "1"
	}
	if v, ok := f.get("global", "maxconn"); ok && v != "" {
		n, err := parseInt(v)
		if err != nil {
			return Configuration{}, fmt.Errorf("config: bad maxconn value %q: %w", v, err)
		}
		cfg.MaxConn = n
	}
	if v, ok := f.get("global", "configDir"); ok {
		cfg.ConfigDir = v
	}
	return cfg, nil
}

func parseInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
