package main

import (
	"flag"
	"time"
)

type runtimeOptions struct {
	configPath  string
	relayURL    string
	send        string
	sendTimeout time.Duration
	debug       bool
}

func parseCLIFlags() runtimeOptions {
	var cfg runtimeOptions

	flag.StringVar(&cfg.configPath, "config", "", "path to YAML config (optional)")
	flag.StringVar(&cfg.relayURL, "relay", "", "relay websocket url, overrides bus.url from config")
	flag.StringVar(&cfg.send, "send", "", "publish one event and exit, e.g. select, progress=0.5, healingText=\"hi\"")
	flag.DurationVar(&cfg.sendTimeout, "send-timeout", 5*time.Second, "how long -send waits for the relay")
	flag.BoolVar(&cfg.debug, "debug", false, "enable debug logging")
	flag.Parse()

	return cfg
}
