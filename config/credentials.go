package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/danthegoodman1/CloudConnect/amazon"
	"github.com/danthegoodman1/CloudConnect/sigv4"
)

// FromSDK adapts an AWS SDK credentials provider. The SDK caches and refreshes,
// the signer still asks on every request.
func FromSDK(provider aws.CredentialsProvider) sigv4.CredentialsProvider {
	return func(ctx context.Context) (sigv4.Credentials, error) {
		creds, err := provider.Retrieve(ctx)
		if err != nil {
			return sigv4.Credentials{}, fmt.Errorf("error in Retrieve: %w", err)
		}
		return sigv4.Credentials{
			AccessKeyID:     creds.AccessKeyID,
			SecretAccessKey: creds.SecretAccessKey,
			SessionToken:    creds.SessionToken,
		}, nil
	}
}

// CredentialsProvider picks the source named by CredentialsSource. The env
// source reads the environment on every call so rotated keys are picked up.
func (c Config) CredentialsProvider(ctx context.Context) (sigv4.CredentialsProvider, error) {
	if c.CredentialsSource != "sdk" {
		return amazon.EnvCredentials(c.getenv), nil
	}

	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("error in LoadDefaultConfig: %w", err)
	}
	return FromSDK(sdkConfig.Credentials), nil
}
