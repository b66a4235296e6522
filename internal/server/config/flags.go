package config

import (
	"flag"
	"os"

	"github.com/Ursa1337/account-service/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN
//	-t duration   access token validity (e.g., "24h")
//	-r duration   refresh token validity (e.g., "720h")
//	-u string     S3 access key
//	-p string     S3 secret key
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string     public base URL for avatar links
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-t", "-r", "-u", "-p", "-b", "-g", "-e", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.DurationVar(&config.AccessTokenTTL, "t", config.AccessTokenTTL, "access token validity")
	fs.DurationVar(&config.RefreshTokenTTL, "r", config.RefreshTokenTTL, "refresh token validity")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.PublicBaseURL, "l", config.PublicBaseURL, "public base URL for avatar links")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
