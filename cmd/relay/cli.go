package main

import "flag"

type runtimeOptions struct {
	configPath string
	addr       string
	debug      bool
}

func parseCLIFlags() runtimeOptions {
	var cfg runtimeOptions

	flag.StringVar(&cfg.configPath, "config", "", "path to YAML config (optional)")
	flag.StringVar(&cfg.addr, "addr", "", "listen address, overrides relay.addr from config")
	flag.BoolVar(&cfg.debug, "debug", false, "enable debug logging")
	flag.Parse()

	return cfg
}
