package main

import "flag"

type runtimeOptions struct {
	configPath string
	relayURL   string
	fps        int
	offline    bool
	visualize  bool
	debug      bool
}

func parseCLIFlags() runtimeOptions {
	var cfg runtimeOptions

	flag.StringVar(&cfg.configPath, "config", "", "path to YAML config (optional)")
	flag.StringVar(&cfg.relayURL, "relay", "", "relay websocket url, overrides bus.url from config")
	flag.IntVar(&cfg.fps, "fps", 0, "frame rate (0 = scene.fps from config)")
	flag.BoolVar(&cfg.offline, "offline", false, "do not connect to the relay")
	flag.BoolVar(&cfg.debug, "debug", false, "enable debug logging")
	flag.BoolVar(&cfg.visualize, "visualize", false, "render a terminal palette preview (logs go to stderr)")
	flag.Parse()

	return cfg
}
