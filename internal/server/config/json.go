package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/forgotpw/secretsvc/internal/flagx"
	"github.com/forgotpw/secretsvc/internal/timex"
)

// JsonConfig is the DTO used only for reading JSON configuration files.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "30m" and integer nanoseconds. After unmarshalling,
// its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr          string         `json:"endpoint_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	AWSRegion             string         `json:"aws_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
	S3AccessKey           string         `json:"s3_access_key"`
	S3SecretKey           string         `json:"s3_secret_key"`
	UserdataBucket        string         `json:"userdata_bucket"`
	AuthReqBucket         string         `json:"authreq_bucket"`
	UserdataSSECKey       string         `json:"userdata_ssec_key"`
	StoreTopicARN         string         `json:"store_topic_arn"`
	RetrieveTopicARN      string         `json:"retrieve_topic_arn"`
	NukeTopicARN          string         `json:"nuke_topic_arn"`
	SendCodeTopicARN      string         `json:"sendcode_topic_arn"`
	ResolverEndpoint      string         `json:"resolver_endpoint"`
	ServiceTokenKey       string         `json:"service_token_key"`
	GrantValidityDuration timex.Duration `json:"grant_validity_duration"`
}

// parseJson loads configuration values from the JSON file named by the
// -c or -config command-line flags into the provided Config. When neither
// flag is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.AWSRegion = c.AWSRegion
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.S3AccessKey = c.S3AccessKey
	config.S3SecretKey = c.S3SecretKey
	config.UserdataBucket = c.UserdataBucket
	config.AuthReqBucket = c.AuthReqBucket
	config.UserdataSSECKey = c.UserdataSSECKey
	config.StoreTopicARN = c.StoreTopicARN
	config.RetrieveTopicARN = c.RetrieveTopicARN
	config.NukeTopicARN = c.NukeTopicARN
	config.SendCodeTopicARN = c.SendCodeTopicARN
	config.ResolverEndpoint = c.ResolverEndpoint
	config.ServiceTokenKey = c.ServiceTokenKey
	config.GrantValidityDuration = time.Duration(c.GrantValidityDuration.Duration)
}
