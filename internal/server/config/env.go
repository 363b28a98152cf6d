package config

import "github.com/dmitrijs2005/tradeportal/internal/flagx"

// parseEnv overlays TP_* environment variables. UA_BASE_HOST is accepted
// for the verifier host as well. Malformed numbers or durations panic, like
// malformed flags.
func parseEnv(config *Config) {
	flagx.EnvString(&config.EndpointAddrGRPC, "TP_GRPC_ADDR")
	flagx.EnvString(&config.EndpointAddrHTTP, "TP_HTTP_ADDR")
	flagx.EnvString(&config.DatabaseDSN, "TP_DATABASE_DSN")
	flagx.EnvString(&config.SecretKey, "TP_SECRET_KEY")
	must(flagx.EnvDuration(&config.NodeTokenValidityDuration, "TP_NODE_TOKEN_TTL"))

	flagx.EnvString(&config.HomeJurisdiction, "TP_HOME_JURISDICTION")
	flagx.EnvString(&config.BaseURL, "TP_BASE_URL")
	flagx.EnvString(&config.VerifierHost, "UA_BASE_HOST")
	flagx.EnvString(&config.VerifierHost, "TP_VERIFIER_HOST")
	must(flagx.EnvInt(&config.OAKeyBits, "TP_OA_KEY_BITS"))
	flagx.EnvString(&config.BIDPrefix, "TP_BID_PREFIX")

	flagx.EnvString(&config.BlobBackend, "TP_BLOB_BACKEND")
	flagx.EnvString(&config.BlobDir, "TP_BLOB_DIR")
	flagx.EnvString(&config.S3RootUser, "TP_S3_ROOT_USER")
	flagx.EnvString(&config.S3RootPassword, "TP_S3_ROOT_PASSWORD")
	flagx.EnvString(&config.S3Bucket, "TP_S3_BUCKET")
	flagx.EnvString(&config.S3Region, "TP_S3_REGION")
	flagx.EnvString(&config.S3BaseEndpoint, "TP_S3_BASE_ENDPOINT")

	flagx.EnvString(&config.RedisURL, "TP_REDIS_URL")
	must(flagx.EnvDuration(&config.CacheTTL, "TP_CACHE_TTL"))

	flagx.EnvList(&config.KafkaBrokers, "TP_KAFKA_BROKERS")
	flagx.EnvString(&config.KafkaOutboundTopic, "TP_KAFKA_OUTBOUND_TOPIC")
	flagx.EnvString(&config.KafkaStatusTopic, "TP_KAFKA_STATUS_TOPIC")
	flagx.EnvString(&config.KafkaGroup, "TP_KAFKA_GROUP")

	flagx.EnvString(&config.LogLevel, "TP_LOG_LEVEL")
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
