package http_server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danthegoodman1/CloudConnect/action"
	"github.com/danthegoodman1/CloudConnect/amazon"
	"github.com/danthegoodman1/CloudConnect/secretsmanager"
	"github.com/danthegoodman1/CloudConnect/storage"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/samber/lo"
)

const (
	arnSuffixAlphabet      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	defaultRecoveryWindow  = 30
	defaultListSecretsPage = 100
)

// StoredSecret is the fake's view of one secret and its current version
type StoredSecret struct {
	Name            string
	ARN             amazon.ARN
	Description     string
	SecretString    *string
	SecretBinary    []byte
	VersionId       string
	Tags            []secretsmanager.Tag
	CreatedDate     time.Time
	LastChangedDate time.Time
	DeletedDate     *time.Time
}

// FakeSecretsManager answers the Secrets Manager JSON API from a Storage
type FakeSecretsManager struct {
	*BaseAWSProvider
	secrets storage.Storage[StoredSecret]
}

func NewFakeSecretsManager(region string, secrets storage.Storage[StoredSecret]) *FakeSecretsManager {
	return &FakeSecretsManager{
		BaseAWSProvider: NewBaseAWSProvider(secretsmanager.ServiceName, region),
		secrets:         secrets,
	}
}

func (p *FakeSecretsManager) Register(e *echo.Echo) {
	e.POST("/", p.handle)
}

func (p *FakeSecretsManager) handle(c echo.Context) error {
	target := c.Request().Header.Get("X-Amz-Target")
	operation, found := strings.CutPrefix(target, "secretsmanager.")
	if !found {
		return writeJSONError(c, newAPIError(http.StatusBadRequest, "UnknownOperationException", "missing or foreign X-Amz-Target"))
	}

	var (
		out any
		err error
	)
	ctx := c.Request().Context()
	switch operation {
	case "CreateSecret":
		out, err = decodeAndRun(c, func(in secretsmanager.CreateSecret) (any, error) { return p.createSecret(ctx, in) })
	case "DeleteSecret":
		out, err = decodeAndRun(c, func(in secretsmanager.DeleteSecret) (any, error) { return p.deleteSecret(ctx, in) })
	case "GetSecretValue":
		out, err = decodeAndRun(c, func(in secretsmanager.GetSecretValue) (any, error) { return p.getSecretValue(ctx, in) })
	case "ListSecrets":
		out, err = decodeAndRun(c, func(in secretsmanager.ListSecrets) (any, error) { return p.listSecrets(ctx, in) })
	case "PutSecretValue":
		out, err = decodeAndRun(c, func(in secretsmanager.PutSecretValue) (any, error) { return p.putSecretValue(ctx, in) })
	case "UpdateSecret":
		out, err = decodeAndRun(c, func(in secretsmanager.UpdateSecret) (any, error) { return p.updateSecret(ctx, in) })
	default:
		err = newAPIError(http.StatusBadRequest, "UnknownOperationException", "unknown operation "+operation)
	}
	if err != nil {
		return writeJSONError(c, err)
	}
	return writeJSON(c, http.StatusOK, amazon.JSONContentType, out)
}

func decodeAndRun[In any](c echo.Context, run func(In) (any, error)) (any, error) {
	var in In
	if err := readJSON(c, &in); err != nil {
		return nil, err
	}
	if err := action.Validate(in); err != nil {
		return nil, newAPIError(http.StatusBadRequest, "InvalidParameterException", err.Error())
	}
	return run(in)
}

func resourceNotFound() error {
	return newAPIError(http.StatusBadRequest, "ResourceNotFoundException", "Secrets Manager can't find the specified secret.")
}

func scheduledForDeletion() error {
	return newAPIError(http.StatusBadRequest, "InvalidRequestException", "You can't perform this operation on the secret because it was marked for deletion.")
}

// resolve maps a name or ARN to the storage key
func (p *FakeSecretsManager) resolve(ctx context.Context, secretID string) (string, error) {
	if !strings.HasPrefix(secretID, "arn:") {
		return secretID, nil
	}
	names, err := p.secrets.KeySet(ctx, "")
	if err != nil {
		return "", err
	}
	for _, name := range names {
		stored, err := p.secrets.Get(ctx, name)
		if err != nil {
			continue
		}
		if stored.ARN.String() == secretID {
			return name, nil
		}
	}
	return "", resourceNotFound()
}

// update runs fn on an existing, not deleted secret
func (p *FakeSecretsManager) update(ctx context.Context, secretID string, fn func(StoredSecret) (StoredSecret, error)) (StoredSecret, error) {
	name, err := p.resolve(ctx, secretID)
	if err != nil {
		return StoredSecret{}, err
	}
	return p.secrets.Update(ctx, name, func(stored StoredSecret, exists bool) (StoredSecret, error) {
		if !exists {
			return stored, resourceNotFound()
		}
		if stored.DeletedDate != nil {
			return stored, scheduledForDeletion()
		}
		return fn(stored)
	})
}

func versionID(token string) string {
	if token != "" {
		return token
	}
	return uuid.NewString()
}

func (p *FakeSecretsManager) createSecret(ctx context.Context, in secretsmanager.CreateSecret) (secretsmanager.CreatedSecret, error) {
	if in.SecretString != nil && in.SecretBinary != nil {
		return secretsmanager.CreatedSecret{}, newAPIError(http.StatusBadRequest, "InvalidParameterException", "specify either SecretString or SecretBinary, not both")
	}
	suffix, err := gonanoid.Generate(arnSuffixAlphabet, 6)
	if err != nil {
		return secretsmanager.CreatedSecret{}, err
	}
	now := p.now().UTC()

	stored, err := p.secrets.Update(ctx, in.Name, func(existing StoredSecret, exists bool) (StoredSecret, error) {
		if exists {
			return existing, newAPIError(http.StatusBadRequest, "ResourceExistsException", "The operation failed because the secret "+in.Name+" already exists.")
		}
		return StoredSecret{
			Name:            in.Name,
			ARN:             p.arn("secret", in.Name+"-"+suffix),
			Description:     lo.FromPtr(in.Description),
			SecretString:    in.SecretString,
			SecretBinary:    in.SecretBinary,
			VersionId:       versionID(in.ClientRequestToken),
			Tags:            in.Tags,
			CreatedDate:     now,
			LastChangedDate: now,
		}, nil
	})
	if err != nil {
		return secretsmanager.CreatedSecret{}, err
	}

	out := secretsmanager.CreatedSecret{ARN: stored.ARN, Name: stored.Name}
	if stored.SecretString != nil || stored.SecretBinary != nil {
		out.VersionId = stored.VersionId
	}
	return out, nil
}

func (p *FakeSecretsManager) deleteSecret(ctx context.Context, in secretsmanager.DeleteSecret) (secretsmanager.DeletedSecret, error) {
	force := lo.FromPtr(in.ForceDeleteWithoutRecovery)
	if force && in.RecoveryWindowInDays != nil {
		return secretsmanager.DeletedSecret{}, newAPIError(http.StatusBadRequest, "InvalidParameterException", "You can't use ForceDeleteWithoutRecovery in conjunction with RecoveryWindowInDays.")
	}
	now := p.now().UTC()

	if force {
		name, err := p.resolve(ctx, in.SecretId)
		if err != nil {
			return secretsmanager.DeletedSecret{}, err
		}
		stored, err := p.secrets.Get(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			return secretsmanager.DeletedSecret{}, resourceNotFound()
		}
		if err != nil {
			return secretsmanager.DeletedSecret{}, err
		}
		if _, err = p.secrets.Remove(ctx, name); err != nil {
			return secretsmanager.DeletedSecret{}, err
		}
		return secretsmanager.DeletedSecret{Name: stored.Name, ARN: stored.ARN, DeletionDate: amazon.TimestampOf(now)}, nil
	}

	window := defaultRecoveryWindow
	if in.RecoveryWindowInDays != nil {
		window = *in.RecoveryWindowInDays
	}
	stored, err := p.update(ctx, in.SecretId, func(stored StoredSecret) (StoredSecret, error) {
		stored.DeletedDate = &now
		return stored, nil
	})
	if err != nil {
		return secretsmanager.DeletedSecret{}, err
	}
	return secretsmanager.DeletedSecret{
		Name:         stored.Name,
		ARN:          stored.ARN,
		DeletionDate: amazon.TimestampOf(now.AddDate(0, 0, window)),
	}, nil
}

func (p *FakeSecretsManager) getSecretValue(ctx context.Context, in secretsmanager.GetSecretValue) (secretsmanager.SecretValue, error) {
	name, err := p.resolve(ctx, in.SecretId)
	if err != nil {
		return secretsmanager.SecretValue{}, err
	}
	stored, err := p.secrets.Get(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return secretsmanager.SecretValue{}, resourceNotFound()
	}
	if err != nil {
		return secretsmanager.SecretValue{}, err
	}
	if stored.DeletedDate != nil {
		return secretsmanager.SecretValue{}, scheduledForDeletion()
	}
	if stored.SecretString == nil && stored.SecretBinary == nil {
		return secretsmanager.SecretValue{}, newAPIError(http.StatusBadRequest, "ResourceNotFoundException", "Secrets Manager can't find the specified secret value for staging label: AWSCURRENT")
	}
	if in.VersionId != nil && *in.VersionId != stored.VersionId {
		return secretsmanager.SecretValue{}, newAPIError(http.StatusBadRequest, "ResourceNotFoundException", "Secrets Manager can't find the specified secret value for VersionId: "+*in.VersionId)
	}
	if in.VersionStage != nil && *in.VersionStage != "AWSCURRENT" {
		return secretsmanager.SecretValue{}, newAPIError(http.StatusBadRequest, "ResourceNotFoundException", "Secrets Manager can't find the specified secret value for staging label: "+*in.VersionStage)
	}

	created := amazon.TimestampOf(stored.LastChangedDate)
	return secretsmanager.SecretValue{
		ARN:           stored.ARN,
		Name:          stored.Name,
		CreatedDate:   &created,
		SecretBinary:  stored.SecretBinary,
		SecretString:  stored.SecretString,
		VersionId:     stored.VersionId,
		VersionStages: []string{"AWSCURRENT"},
	}, nil
}

// listSecrets pages through live secrets in name order, NextToken is the
// first name of the next page.
func (p *FakeSecretsManager) listSecrets(ctx context.Context, in secretsmanager.ListSecrets) (secretsmanager.Secrets, error) {
	names, err := p.secrets.KeySet(ctx, "")
	if err != nil {
		return secretsmanager.Secrets{}, err
	}
	if in.NextToken != nil {
		names = lo.Filter(names, func(name string, _ int) bool { return name >= *in.NextToken })
	}
	limit := defaultListSecretsPage
	if in.MaxResults != nil {
		limit = *in.MaxResults
	}

	out := secretsmanager.Secrets{SecretList: []secretsmanager.SecretEntry{}}
	for _, name := range names {
		stored, err := p.secrets.Get(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return secretsmanager.Secrets{}, err
		}
		if stored.DeletedDate != nil {
			continue
		}
		if len(out.SecretList) == limit {
			out.NextToken = lo.ToPtr(name)
			break
		}
		changed := amazon.TimestampOf(stored.LastChangedDate)
		out.SecretList = append(out.SecretList, secretsmanager.SecretEntry{
			ARN:             stored.ARN,
			Name:            stored.Name,
			Description:     stored.Description,
			LastChangedDate: &changed,
			Tags:            stored.Tags,
		})
	}
	return out, nil
}

func (p *FakeSecretsManager) putSecretValue(ctx context.Context, in secretsmanager.PutSecretValue) (secretsmanager.UpdatedSecret, error) {
	if in.SecretString == nil && in.SecretBinary == nil {
		return secretsmanager.UpdatedSecret{}, newAPIError(http.StatusBadRequest, "InvalidParameterException", secretsmanager.ErrSecretValueMissing.Error())
	}
	stored, err := p.update(ctx, in.SecretId, func(stored StoredSecret) (StoredSecret, error) {
		stored.SecretString = in.SecretString
		stored.SecretBinary = in.SecretBinary
		stored.VersionId = versionID(in.ClientRequestToken)
		stored.LastChangedDate = p.now().UTC()
		return stored, nil
	})
	if err != nil {
		return secretsmanager.UpdatedSecret{}, err
	}
	return secretsmanager.UpdatedSecret{ARN: stored.ARN, Name: stored.Name, VersionId: lo.ToPtr(stored.VersionId)}, nil
}

// updateSecret only creates a version when the value changes
func (p *FakeSecretsManager) updateSecret(ctx context.Context, in secretsmanager.UpdateSecret) (secretsmanager.UpdatedSecret, error) {
	valueChanged := in.SecretString != nil || in.SecretBinary != nil
	stored, err := p.update(ctx, in.SecretId, func(stored StoredSecret) (StoredSecret, error) {
		if in.Description != nil {
			stored.Description = *in.Description
		}
		if valueChanged {
			stored.SecretString = in.SecretString
			stored.SecretBinary = in.SecretBinary
			stored.VersionId = versionID(in.ClientRequestToken)
		}
		stored.LastChangedDate = p.now().UTC()
		return stored, nil
	})
	if err != nil {
		return secretsmanager.UpdatedSecret{}, err
	}
	out := secretsmanager.UpdatedSecret{ARN: stored.ARN, Name: stored.Name}
	if valueChanged {
		out.VersionId = lo.ToPtr(stored.VersionId)
	}
	return out, nil
}
