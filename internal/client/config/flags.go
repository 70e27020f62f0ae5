package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/worklog/internal/flagx"
)

var knownFlags = []string{"-d", "-l", "-i", "-t", "-h", "-s", "-max-attempts", "-log-file", "-log-level"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-d string        remote Postgres DSN
//	-l string        local SQLite mirror path
//	-i int           online check interval (in seconds)
//	-t int           remote call timeout (in seconds)
//	-h string        gRPC health endpoint
//	-s string        JWT secret
//	-max-attempts    rejected replays before an entry is set aside
//	-log-file        log file path ("" logs to stderr)
//	-log-level       debug, info, warn or error
//
// S3 settings are only read from JSON.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.RemoteDSN, "d", cfg.RemoteDSN, "remote database DSN")
	fs.StringVar(&cfg.LocalDBPath, "l", cfg.LocalDBPath, "local database path")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	remoteTimeout := fs.Int("t", int(cfg.RemoteTimeout.Seconds()), "remote call timeout (in seconds)")
	fs.StringVar(&cfg.HealthEndpoint, "h", cfg.HealthEndpoint, "gRPC health endpoint")
	fs.StringVar(&cfg.JWTSecret, "s", cfg.JWTSecret, "JWT secret")
	fs.IntVar(&cfg.MaxReplayAttempts, "max-attempts", cfg.MaxReplayAttempts, "rejected replays before an entry is set aside (0 = unlimited)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.RemoteTimeout = time.Duration(*remoteTimeout) * time.Second
}
