package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/forgotpw/secretsvc/internal/common"
	"github.com/forgotpw/secretsvc/internal/logging"
)

// Publisher sends an opaque message to a topic. Satisfied by SNSPublisher;
// tests substitute fakes.
type Publisher interface {
	Publish(ctx context.Context, topicARN string, message string) error
}

// snsAPI is the slice of the SNS client the publisher needs.
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes messages to AWS SNS topics.
type SNSPublisher struct {
	client snsAPI
}

func NewSNSPublisher(client *sns.Client) *SNSPublisher {
	return &SNSPublisher{client: client}
}

func (p *SNSPublisher) Publish(ctx context.Context, topicARN string, message string) error {
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Message:  aws.String(message),
	})
	return err
}

// Topics holds the per-action destination topic ARNs.
type Topics struct {
	Store    string
	Retrieve string
	Nuke     string
	SendCode string
}

// For returns the topic ARN for an action, or "" when none is configured.
func (t Topics) For(a Action) string {
	switch a {
	case ActionStore:
		return t.Store
	case ActionRetrieve:
		return t.Retrieve
	case ActionNuke:
		return t.Nuke
	case ActionSendCode:
		return t.SendCode
	default:
		return ""
	}
}

// Emitter validates events and publishes them. One Emit call makes at most
// one publish call; retry and dedup are left to the transport and the caller.
type Emitter struct {
	pub    Publisher
	topics Topics
	logger logging.Logger
}

func NewEmitter(pub Publisher, topics Topics, logger logging.Logger) *Emitter {
	return &Emitter{
		pub:    pub,
		topics: topics,
		logger: logger.With("module", "events"),
	}
}

// Emit publishes a single validated event. Schema failures surface as
// common.ErrorMessageInvalid and nothing is published; transport failures
// surface as common.ErrorPublish after exactly one publish attempt.
func (em *Emitter) Emit(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		em.logger.Error(ctx, "event failed schema validation", "action", string(ev.Action), "error", err.Error())
		return err
	}

	topic := em.topics.For(ev.Action)
	if topic == "" {
		em.logger.Error(ctx, "no topic configured for action", "action", string(ev.Action))
		return fmt.Errorf("%w: no topic configured for action %s", common.ErrorConfiguration, ev.Action)
	}

	// log the redacted copy only; the validated payload stays untouched
	if redacted, err := json.Marshal(ev.Redacted()); err == nil {
		em.logger.Debug(ctx, "publishing event", "topic", topic, "message", string(redacted))
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%w: marshalling event: %v", common.ErrorMessageInvalid, err)
	}

	if err := em.pub.Publish(ctx, topic, string(body)); err != nil {
		em.logger.Error(ctx, "event publish failed", "action", string(ev.Action), "topic", topic, "error", err.Error())
		return fmt.Errorf("%w: %v", common.ErrorPublish, err)
	}

	em.logger.Info(ctx, "event published", "action", string(ev.Action), "topic", topic)
	return nil
}
