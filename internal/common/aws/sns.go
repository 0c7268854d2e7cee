// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "coachme-notifier/internal/common/errors"
	"coachme-notifier/internal/common/logger"
	"coachme-notifier/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the subset of the SNS client used for mobile push.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	CreatePlatformEndpoint(ctx context.Context, params *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error)
}

// EndpointCache maps device tokens to SNS platform endpoint ARNs.
type EndpointCache interface {
	Get(ctx context.Context, token string) (string, bool, error)
	Set(ctx context.Context, token, endpointARN string) error
	Delete(ctx context.Context, token string) error
}

// SNSClient delivers notifications to FCM device tokens through an SNS
// platform application.
type SNSClient struct {
	api         SNSAPI
	platformARN string
	cache       EndpointCache
	logger      logger.Logger
}

func NewSNSClient(ctx context.Context, region, platformARN string, cache EndpointCache, log logger.Logger) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewSNSClientWithAPI(sns.NewFromConfig(cfg), platformARN, cache, log), nil
}

func NewSNSClientWithAPI(api SNSAPI, platformARN string, cache EndpointCache, log logger.Logger) *SNSClient {
	if cache == nil {
		cache = noCache{}
	}
	return &SNSClient{
		api:         api,
		platformARN: platformARN,
		cache:       cache,
		logger:      log.WithFields(map[string]interface{}{"component": "sns"}),
	}
}

// Send publishes n to its destination token and returns the SNS message id.
func (s *SNSClient) Send(ctx context.Context, n models.NotificationRecord) (string, error) {
	endpointARN, err := s.endpointFor(ctx, n.DestinationToken)
	if err != nil {
		return "", apperrors.NewEndpointRegistrationFailedError(err)
	}

	message, err := BuildMessage(n)
	if err != nil {
		return "", apperrors.NewDeliveryFailedError(err)
	}

	out, err := s.api.Publish(ctx, &sns.PublishInput{
		TargetArn:        awssdk.String(endpointARN),
		Message:          awssdk.String(message),
		MessageStructure: awssdk.String("json"),
	})
	if err != nil {
		var disabled *types.EndpointDisabledException
		if errors.As(err, &disabled) {
			// the token was unregistered; the next send re-creates the endpoint
			if delErr := s.cache.Delete(ctx, n.DestinationToken); delErr != nil {
				s.logger.Warn("endpoint cache eviction failed", map[string]interface{}{"error": delErr})
			}
		}
		return "", apperrors.NewDeliveryFailedError(err)
	}
	return awssdk.ToString(out.MessageId), nil
}

func (s *SNSClient) endpointFor(ctx context.Context, token string) (string, error) {
	arn, ok, err := s.cache.Get(ctx, token)
	if err != nil {
		s.logger.Warn("endpoint cache lookup failed", map[string]interface{}{"error": err})
	}
	if ok {
		return arn, nil
	}

	out, err := s.api.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: awssdk.String(s.platformARN),
		Token:                  awssdk.String(token),
	})
	if err != nil {
		return "", err
	}
	arn = awssdk.ToString(out.EndpointArn)
	if arn == "" {
		return "", errors.New("empty endpoint ARN")
	}

	if err := s.cache.Set(ctx, token, arn); err != nil {
		s.logger.Warn("endpoint cache store failed", map[string]interface{}{"error": err})
	}
	return arn, nil
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmMessage struct {
	Notification fcmNotification  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmV1Payload struct {
	FCMV1Message struct {
		Message fcmMessage `json:"message"`
	} `json:"fcmV1Message"`
}

// BuildMessage renders n as an SNS JSON message structure with a default
// body and an FCM v1 payload under the GCM key.
func BuildMessage(n models.NotificationRecord) (string, error) {
	var payload fcmV1Payload
	payload.FCMV1Message.Message = fcmMessage{
		Notification: fcmNotification{Title: n.Title, Body: n.Body},
		Data:         n.ExtraData,
	}
	gcm, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal fcm payload: %w", err)
	}

	msg, err := json.Marshal(map[string]string{
		"default": n.Body,
		"GCM":     string(gcm),
	})
	if err != nil {
		return "", fmt.Errorf("marshal sns message: %w", err)
	}
	return string(msg), nil
}

type noCache struct{}

func (noCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (noCache) Set(context.Context, string, string) error         { return nil }
func (noCache) Delete(context.Context, string) error              { return nil }
