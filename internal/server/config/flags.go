package config

import (
	"flag"
	"os"
	"time"

	"github.com/perfcanvas/scriptstore/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-r string   Redis address for the listing cache
//	-o string   root directory for user repositories
//	-s string   token HMAC secret key
//	-l int      listing retry delay, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-r", "-o", "-s", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.BindAddr, "a", config.BindAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address for the listing cache")
	fs.StringVar(&config.RepoRoot, "o", config.RepoRoot, "root directory for user repositories")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	listingRetryDelay := fs.Int("l", int(config.ListingRetryDelay.Seconds()), "listing retry delay (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ListingRetryDelay = time.Duration(*listingRetryDelay) * time.Second
}
