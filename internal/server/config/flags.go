package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/flagx"
)

var knownFlags = []string{
	"-a", "-l", "-d", "-s", "-t", "-j", "-base-url", "-verifier-host", "-key-bits", "-bid-prefix",
	"-blob", "-blob-dir", "-u", "-p", "-b", "-g", "-e", "-redis", "-cache-ttl",
	"-kafka", "-kafka-out", "-kafka-status", "-kafka-group", "-log-level",
}

// parseFlags populates Config fields from command-line flags.
//
// Short forms kept from the original server:
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-l string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN ("" for in-memory storage)
//	-s string   JWT HMAC secret key
//	-t int      node token validity, minutes
//	-j string   home jurisdiction
//	-u, -p, -b, -g, -e  S3 user, password, bucket, region, endpoint
//
// The remaining flags use long names; see knownFlags.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	nodeTokenValidity := fs.Int("t", int(config.NodeTokenValidityDuration.Minutes()), "node token validity (in minutes)")

	fs.StringVar(&config.HomeJurisdiction, "j", config.HomeJurisdiction, "home jurisdiction (ISO alpha-2)")
	fs.StringVar(&config.BaseURL, "base-url", config.BaseURL, "public base URL of this portal")
	fs.StringVar(&config.VerifierHost, "verifier-host", config.VerifierHost, "verifier page for QR codes")
	fs.IntVar(&config.OAKeyBits, "key-bits", config.OAKeyBits, "AES key size for OA locators")
	fs.StringVar(&config.BIDPrefix, "bid-prefix", config.BIDPrefix, "business identifier prefix of home parties")

	fs.StringVar(&config.BlobBackend, "blob", config.BlobBackend, "blob backend: s3, disk or memory")
	fs.StringVar(&config.BlobDir, "blob-dir", config.BlobDir, "root directory of the disk blob backend")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.RedisURL, "redis", config.RedisURL, "redis URL for the wrapped document cache")
	fs.DurationVar(&config.CacheTTL, "cache-ttl", config.CacheTTL, "wrapped document cache TTL")

	brokers := fs.String("kafka", strings.Join(config.KafkaBrokers, ","), "comma separated Kafka brokers")
	fs.StringVar(&config.KafkaOutboundTopic, "kafka-out", config.KafkaOutboundTopic, "outbound message topic")
	fs.StringVar(&config.KafkaStatusTopic, "kafka-status", config.KafkaStatusTopic, "transport status topic")
	fs.StringVar(&config.KafkaGroup, "kafka-group", config.KafkaGroup, "consumer group")

	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.NodeTokenValidityDuration = time.Duration(*nodeTokenValidity) * time.Minute
		case "kafka":
			config.KafkaBrokers = flagx.SplitList(*brokers)
		}
	})
}
