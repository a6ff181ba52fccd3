package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/omgclient/internal/flagx"
)

var knownFlags = []string{"-a", "-s", "-d", "-r", "-t", "-l", "-b"}

// parseFlags overlays cfg with command-line flags:
//
//	-a string   API base URL
//	-s string   store driver (sqlite, postgres, s3, memory)
//	-d string   store DSN (file path or connection string)
//	-b string   S3 bucket
//	-r int      reload interval in seconds, 0 disables automatic reloads
//	-t int      request timeout in seconds
//	-l string   log level
//
// Only these flags are looked at, other arguments are left for the caller.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "API base URL")
	fs.StringVar(&cfg.StoreDriver, "s", cfg.StoreDriver, "local store driver")
	fs.StringVar(&cfg.StoreDSN, "d", cfg.StoreDSN, "local store DSN")
	fs.StringVar(&cfg.S3.Bucket, "b", cfg.S3.Bucket, "S3 bucket")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	reload := fs.Int("r", int(cfg.ReloadInterval.Seconds()), "reload interval (in seconds)")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if *reload < 0 || *timeout < 0 {
		return fmt.Errorf("parse flags: negative interval")
	}

	cfg.ReloadInterval = time.Duration(*reload) * time.Second
	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
