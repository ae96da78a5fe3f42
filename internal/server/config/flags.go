package config

import (
	"flag"
	"os"
	"time"

	"github.com/forgotpw/secretsvc/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. The grant
// validity flag is accepted as an integer in minutes and converted to a
// time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-addr", "-dsn", "-region", "-s3-endpoint", "-s3-access-key", "-s3-secret-key",
		"-userdata-bucket", "-authreq-bucket", "-ssec-key",
		"-store-topic", "-retrieve-topic", "-nuke-topic", "-sendcode-topic",
		"-resolver", "-service-token-key", "-grant-ttl",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "addr", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "dsn", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AWSRegion, "region", config.AWSRegion, "AWS region")
	fs.StringVar(&config.S3BaseEndpoint, "s3-endpoint", config.S3BaseEndpoint, "S3 base endpoint (for S3-compatible backends)")
	fs.StringVar(&config.S3AccessKey, "s3-access-key", config.S3AccessKey, "S3 static access key")
	fs.StringVar(&config.S3SecretKey, "s3-secret-key", config.S3SecretKey, "S3 static secret key")
	fs.StringVar(&config.UserdataBucket, "userdata-bucket", config.UserdataBucket, "bucket for encrypted secret records")
	fs.StringVar(&config.AuthReqBucket, "authreq-bucket", config.AuthReqBucket, "bucket for grant records")
	fs.StringVar(&config.UserdataSSECKey, "ssec-key", config.UserdataSSECKey, "SSE-C key material (min 32 bytes)")
	fs.StringVar(&config.StoreTopicARN, "store-topic", config.StoreTopicARN, "SNS topic ARN for store events")
	fs.StringVar(&config.RetrieveTopicARN, "retrieve-topic", config.RetrieveTopicARN, "SNS topic ARN for retrieve events")
	fs.StringVar(&config.NukeTopicARN, "nuke-topic", config.NukeTopicARN, "SNS topic ARN for nuke events")
	fs.StringVar(&config.SendCodeTopicARN, "sendcode-topic", config.SendCodeTopicARN, "SNS topic ARN for sendCode events")
	fs.StringVar(&config.ResolverEndpoint, "resolver", config.ResolverEndpoint, "phone-token resolver endpoint")
	fs.StringVar(&config.ServiceTokenKey, "service-token-key", config.ServiceTokenKey, "service token HMAC key")

	grantTTL := fs.Int("grant-ttl", int(config.GrantValidityDuration.Minutes()), "grant validity (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.GrantValidityDuration = time.Duration(*grantTTL) * time.Minute
}
