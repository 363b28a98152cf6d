package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/tradeportal/internal/flagx"
	"github.com/dmitrijs2005/tradeportal/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// Zero values mean "not set" and leave the current Config value in place.
type JsonConfig struct {
	EndpointAddrGRPC          string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP          string         `json:"endpoint_addr_http"`
	DatabaseDSN               string         `json:"database_dsn"`
	SecretKey                 string         `json:"secret_key"`
	NodeTokenValidityDuration timex.Duration `json:"node_token_validity_duration"`

	HomeJurisdiction string `json:"home_jurisdiction"`
	BaseURL          string `json:"base_url"`
	VerifierHost     string `json:"verifier_host"`
	OAKeyBits        int    `json:"oa_key_bits"`
	BIDPrefix        string `json:"bid_prefix"`

	BlobBackend    string `json:"blob_backend"`
	BlobDir        string `json:"blob_dir"`
	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	RedisURL string         `json:"redis_url"`
	CacheTTL timex.Duration `json:"cache_ttl"`

	KafkaBrokers       []string `json:"kafka_brokers"`
	KafkaOutboundTopic string   `json:"kafka_outbound_topic"`
	KafkaStatusTopic   string   `json:"kafka_status_topic"`
	KafkaGroup         string   `json:"kafka_group"`

	LogLevel string `json:"log_level"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson loads configuration values from the JSON file named by the -c
// or -config flag. Without the flag nothing is loaded. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.NodeTokenValidityDuration.Duration > 0 {
		config.NodeTokenValidityDuration = c.NodeTokenValidityDuration.Duration
	}

	setString(&config.HomeJurisdiction, c.HomeJurisdiction)
	setString(&config.BaseURL, c.BaseURL)
	setString(&config.VerifierHost, c.VerifierHost)
	if c.OAKeyBits != 0 {
		config.OAKeyBits = c.OAKeyBits
	}
	setString(&config.BIDPrefix, c.BIDPrefix)

	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.BlobDir, c.BlobDir)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	setString(&config.RedisURL, c.RedisURL)
	if c.CacheTTL.Duration > 0 {
		config.CacheTTL = c.CacheTTL.Duration
	}

	if len(c.KafkaBrokers) > 0 {
		config.KafkaBrokers = c.KafkaBrokers
	}
	setString(&config.KafkaOutboundTopic, c.KafkaOutboundTopic)
	setString(&config.KafkaStatusTopic, c.KafkaStatusTopic)
	setString(&config.KafkaGroup, c.KafkaGroup)

	setString(&config.LogLevel, c.LogLevel)
}
