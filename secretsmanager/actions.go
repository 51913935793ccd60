// Package secretsmanager talks to AWS Secrets Manager over the AWS JSON 1.1
// protocol.
package secretsmanager

import (
	"errors"
	"net/http"

	"github.com/danthegoodman1/CloudConnect/action"
	"github.com/danthegoodman1/CloudConnect/amazon"
	"github.com/google/uuid"
)

const (
	ServiceName  = "secretsmanager"
	targetPrefix = "secretsmanager"
)

var ErrSecretValueMissing = errors.New("one of SecretString or SecretBinary is required")

func jsonRequest(operation string, input any) (*http.Request, error) {
	if err := action.Validate(input); err != nil {
		return nil, err
	}
	return amazon.NewJSONRequest(targetPrefix, operation, input)
}

func secretValueGiven(s *string, b []byte) error {
	if s == nil && b == nil {
		return ErrSecretValueMissing
	}
	return nil
}

type CreateSecret struct {
	Name               string  `validate:"required,max=512"`
	ClientRequestToken string  `json:",omitempty" validate:"omitempty,min=32,max=64"`
	Description        *string `json:",omitempty"`
	KmsKeyId           *string `json:",omitempty"`
	SecretString       *string `json:",omitempty"`
	SecretBinary       []byte  `json:",omitempty"`
	Tags               []Tag   `json:",omitempty"`
}

// NewCreateSecret creates a string secret with a fresh idempotency token
func NewCreateSecret(name, value string) CreateSecret {
	return CreateSecret{
		Name:               name,
		ClientRequestToken: uuid.NewString(),
		SecretString:       &value,
	}
}

func (a CreateSecret) ToRequest() (*http.Request, error) {
	if err := secretValueGiven(a.SecretString, a.SecretBinary); err != nil {
		return nil, err
	}
	return jsonRequest("CreateSecret", a)
}

func (a CreateSecret) ToResult(resp *http.Response) action.Result[CreatedSecret] {
	return action.DecodeJSON[CreatedSecret](resp)
}

// DeleteSecret schedules a secret for deletion after the recovery window, or
// at once with ForceDeleteWithoutRecovery.
type DeleteSecret struct {
	SecretId                   string `validate:"required"`
	ForceDeleteWithoutRecovery *bool  `json:",omitempty"`
	RecoveryWindowInDays       *int   `json:",omitempty" validate:"omitempty,min=7,max=30"`
}

func (a DeleteSecret) ToRequest() (*http.Request, error) {
	if a.ForceDeleteWithoutRecovery != nil && *a.ForceDeleteWithoutRecovery && a.RecoveryWindowInDays != nil {
		return nil, errors.New("ForceDeleteWithoutRecovery and RecoveryWindowInDays are mutually exclusive")
	}
	return jsonRequest("DeleteSecret", a)
}

func (a DeleteSecret) ToResult(resp *http.Response) action.Result[DeletedSecret] {
	return action.DecodeJSON[DeletedSecret](resp)
}

type GetSecretValue struct {
	SecretId     string  `validate:"required"`
	VersionId    *string `json:",omitempty"`
	VersionStage *string `json:",omitempty"`
}

func (a GetSecretValue) ToRequest() (*http.Request, error) {
	return jsonRequest("GetSecretValue", a)
}

func (a GetSecretValue) ToResult(resp *http.Response) action.Result[SecretValue] {
	return action.DecodeJSON[SecretValue](resp)
}

type ListSecrets struct {
	MaxResults *int    `json:",omitempty" validate:"omitempty,min=1,max=100"`
	NextToken  *string `json:",omitempty"`
}

func (a ListSecrets) ToRequest() (*http.Request, error) {
	return jsonRequest("ListSecrets", a)
}

func (a ListSecrets) ToResult(resp *http.Response) action.Result[Secrets] {
	return action.DecodeJSON[Secrets](resp)
}

type PutSecretValue struct {
	SecretId           string   `validate:"required"`
	ClientRequestToken string   `json:",omitempty" validate:"omitempty,min=32,max=64"`
	SecretString       *string  `json:",omitempty"`
	SecretBinary       []byte   `json:",omitempty"`
	VersionStages      []string `json:",omitempty"`
}

func (a PutSecretValue) ToRequest() (*http.Request, error) {
	if err := secretValueGiven(a.SecretString, a.SecretBinary); err != nil {
		return nil, err
	}
	return jsonRequest("PutSecretValue", a)
}

func (a PutSecretValue) ToResult(resp *http.Response) action.Result[UpdatedSecret] {
	return action.DecodeJSON[UpdatedSecret](resp)
}

type UpdateSecret struct {
	SecretId           string  `validate:"required"`
	ClientRequestToken string  `json:",omitempty" validate:"omitempty,min=32,max=64"`
	Description        *string `json:",omitempty"`
	KmsKeyId           *string `json:",omitempty"`
	SecretString       *string `json:",omitempty"`
	SecretBinary       []byte  `json:",omitempty"`
}

func (a UpdateSecret) ToRequest() (*http.Request, error) {
	return jsonRequest("UpdateSecret", a)
}

func (a UpdateSecret) ToResult(resp *http.Response) action.Result[UpdatedSecret] {
	return action.DecodeJSON[UpdatedSecret](resp)
}
