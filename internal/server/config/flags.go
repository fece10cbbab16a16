package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-m string     metrics bind address (empty disables)
//	-d string     PostgreSQL DSN
//	-l string     log level
//	-k kid=src    signing key source, repeatable; replaces configured keys
//	-K string     active kid
//	-t duration   access token validity (e.g., "5m")
//	-r duration   refresh token validity (e.g., "168h")
//	-w int        hashing worker pool size
//	-u string     S3 user
//	-p string     S3 password
//	-g string     S3 region
//	-e string     S3 base endpoint
//
// Key passphrases are not accepted on the command line; use the JSON file.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-d", "-l", "-k", "-K", "-t", "-r", "-w", "-u", "-p", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port of the metrics endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	var keys flagx.KeyValueList
	fs.Var(&keys, "k", "signing key as kid=source (repeatable)")
	fs.StringVar(&config.ActiveKID, "K", config.ActiveKID, "active signing kid")

	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "r", config.RefreshTokenValidityDuration, "refresh token validity")
	fs.IntVar(&config.HashWorkers, "w", config.HashWorkers, "hashing worker pool size (0 = NumCPU)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 password")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if len(keys) > 0 {
		passphrases := make(map[string]string, len(config.SigningKeys))
		for _, k := range config.SigningKeys {
			passphrases[k.KID] = k.Passphrase
		}
		config.SigningKeys = make([]KeySource, 0, len(keys))
		for _, kv := range keys {
			config.SigningKeys = append(config.SigningKeys, KeySource{KID: kv.Key, Source: kv.Value, Passphrase: passphrases[kv.Key]})
		}
	}
}
