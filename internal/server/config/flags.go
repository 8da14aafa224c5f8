package config

import (
	"flag"
	"os"
	"time"

	"github.com/accountd/accountd/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-store string  session store backend ("postgres" or "redis")
//	-r string   Redis URL (used with -store redis)
//	-t int      session validity, minutes
//	-i int      session cleanup interval, minutes
//	-secure     mark session cookies Secure
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers in minutes and then converted to
// time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-store", "-r", "-t", "-i", "-secure"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SessionStore, "store", config.SessionStore, "session store backend (postgres|redis)")
	fs.StringVar(&config.RedisDSN, "r", config.RedisDSN, "redis URL")
	fs.BoolVar(&config.SecureCookies, "secure", config.SecureCookies, "mark session cookies Secure")

	sessionValidity := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session_validity_duration (in minutes)")
	cleanupInterval := fs.Int("i", int(config.SessionCleanupInterval.Minutes()), "session_cleanup_interval (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Minute
	config.SessionCleanupInterval = time.Duration(*cleanupInterval) * time.Minute
}
