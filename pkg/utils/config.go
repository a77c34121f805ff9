package utils

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type ServerConfig struct {
	Addr         string
	StorePath    string // bolt database holding sources + repacks
	FetchTimeout time.Duration
	StoreDebug   bool // wrap sublevels with the zap store logger
}

func LoadServerConfig() ServerConfig {
	addr := os.Getenv("REPACKHUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	storePath := os.Getenv("REPACKHUB_STORE_PATH")
	if storePath == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			home = "."
		}
		storePath = filepath.Join(home, ".repackhub", "sources.db")
	}

	timeout := 30 * time.Second
	if s := os.Getenv("REPACKHUB_FETCH_TIMEOUT_SECONDS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Second
		}
	}

	debug := false
	if s := os.Getenv("REPACKHUB_STORE_DEBUG"); s != "" {
		debug, _ = strconv.ParseBool(s)
	}

	return ServerConfig{
		Addr:         addr,
		StorePath:    storePath,
		FetchTimeout: timeout,
		StoreDebug:   debug,
	}
}
