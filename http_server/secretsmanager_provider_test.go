package http_server

import (
	"context"
	"testing"
	"time"

	"github.com/danthegoodman1/CloudConnect/action"
	"github.com/danthegoodman1/CloudConnect/secretsmanager"
	"github.com/danthegoodman1/CloudConnect/sigv4"
	"github.com/danthegoodman1/CloudConnect/storage"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSecretsManager(t *testing.T, mode sigv4.PayloadMode) (*secretsmanager.Client, storage.Storage[StoredSecret]) {
	t.Helper()
	store := storage.NewInMemory[StoredSecret]()
	fake := NewFakeSecretsManager(testRegion, store)
	fake.SetClock(func() time.Time { return testNow })

	c, err := secretsmanager.New(awsConfig(verifyingServer(fake), testCredentials(), mode))
	require.NoError(t, err)
	return c, store
}

func TestSecretsManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	c, _ := newSecretsManager(t, sigv4.PayloadSigned)

	created := c.CreateSecret(ctx, secretsmanager.NewCreateSecret("db-password", "s3cr3t"))
	require.True(t, created.IsSuccess(), "%v", created.Failure())
	assert.Equal(t, "db-password", created.Value().Name)
	assert.Equal(t, "secretsmanager", created.Value().ARN.Service)
	assert.Equal(t, "secret", created.Value().ARN.ResourceType)
	assert.NotEmpty(t, created.Value().VersionId)

	got := c.GetSecretValue(ctx, secretsmanager.GetSecretValue{SecretId: "db-password"})
	require.True(t, got.IsSuccess(), "%v", got.Failure())
	assert.Equal(t, "s3cr3t", *got.Value().SecretString)
	assert.Equal(t, []string{"AWSCURRENT"}, got.Value().VersionStages)

	byARN := c.GetSecretValue(ctx, secretsmanager.GetSecretValue{SecretId: created.Value().ARN.String()})
	require.True(t, byARN.IsSuccess(), "%v", byARN.Failure())
	assert.Equal(t, "db-password", byARN.Value().Name)

	put := c.PutSecretValue(ctx, secretsmanager.PutSecretValue{SecretId: "db-password", SecretString: lo.ToPtr("rotated")})
	require.True(t, put.IsSuccess(), "%v", put.Failure())
	assert.NotEqual(t, created.Value().VersionId, *put.Value().VersionId)

	got = c.GetSecretValue(ctx, secretsmanager.GetSecretValue{SecretId: "db-password"})
	require.True(t, got.IsSuccess())
	assert.Equal(t, "rotated", *got.Value().SecretString)

	updated := c.UpdateSecret(ctx, secretsmanager.UpdateSecret{SecretId: "db-password", Description: lo.ToPtr("primary db")})
	require.True(t, updated.IsSuccess(), "%v", updated.Failure())
	assert.Nil(t, updated.Value().VersionId, "no new version without a new value")

	listed := c.ListSecrets(ctx, secretsmanager.ListSecrets{})
	require.True(t, listed.IsSuccess(), "%v", listed.Failure())
	require.Len(t, listed.Value().SecretList, 1)
	assert.Equal(t, "primary db", listed.Value().SecretList[0].Description)
}

func TestSecretsManagerDeleteSecret(t *testing.T) {
	ctx := context.Background()

	for _, mode := range []sigv4.PayloadMode{sigv4.PayloadSigned, sigv4.PayloadUnsigned} {
		t.Run(mode.String(), func(t *testing.T) {
			c, store := newSecretsManager(t, mode)
			require.True(t, c.CreateSecret(ctx, secretsmanager.NewCreateSecret("foo", "bar")).IsSuccess())

			deleted := c.DeleteSecret(ctx, secretsmanager.DeleteSecret{SecretId: "foo", RecoveryWindowInDays: lo.ToPtr(7)})
			require.True(t, deleted.IsSuccess(), "%v", deleted.Failure())
			assert.Equal(t, "foo", deleted.Value().Name)
			assert.True(t, testNow.AddDate(0, 0, 7).Equal(deleted.Value().DeletionDate.Time))

			again := c.DeleteSecret(ctx, secretsmanager.DeleteSecret{SecretId: "foo"})
			require.False(t, again.IsSuccess())
			assert.Equal(t, "InvalidRequestException", again.Failure().Code)

			// still stored until the window passes
			_, err := store.Get(ctx, "foo")
			assert.NoError(t, err)

			got := c.GetSecretValue(ctx, secretsmanager.GetSecretValue{SecretId: "foo"})
			require.False(t, got.IsSuccess())
			assert.Equal(t, "InvalidRequestException", got.Failure().Code)

			forced := c.DeleteSecret(ctx, secretsmanager.DeleteSecret{SecretId: "foo", ForceDeleteWithoutRecovery: lo.ToPtr(true)})
			require.True(t, forced.IsSuccess(), "%v", forced.Failure())
			assert.True(t, testNow.Equal(forced.Value().DeletionDate.Time))
			_, err = store.Get(ctx, "foo")
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}

func TestSecretsManagerErrors(t *testing.T) {
	ctx := context.Background()
	c, _ := newSecretsManager(t, sigv4.PayloadSigned)

	missing := c.DeleteSecret(ctx, secretsmanager.DeleteSecret{SecretId: "nope"})
	require.False(t, missing.IsSuccess())
	assert.Equal(t, action.KindRemote, missing.Failure().Kind)
	assert.Equal(t, "ResourceNotFoundException", missing.Failure().Code)
	assert.Equal(t, 400, missing.Failure().Status)

	require.True(t, c.CreateSecret(ctx, secretsmanager.NewCreateSecret("dup", "1")).IsSuccess())
	dup := c.CreateSecret(ctx, secretsmanager.NewCreateSecret("dup", "2"))
	require.False(t, dup.IsSuccess())
	assert.Equal(t, "ResourceExistsException", dup.Failure().Code)

	stale := c.GetSecretValue(ctx, secretsmanager.GetSecretValue{SecretId: "dup", VersionId: lo.ToPtr("00000000-0000-0000-0000-000000000000")})
	require.False(t, stale.IsSuccess())
	assert.Equal(t, "ResourceNotFoundException", stale.Failure().Code)
}

func TestSecretsManagerListPages(t *testing.T) {
	ctx := context.Background()
	c, _ := newSecretsManager(t, sigv4.PayloadSigned)
	for _, name := range []string{"a", "b", "c"} {
		require.True(t, c.CreateSecret(ctx, secretsmanager.NewCreateSecret(name, "v")).IsSuccess())
	}

	first := c.ListSecrets(ctx, secretsmanager.ListSecrets{MaxResults: lo.ToPtr(2)})
	require.True(t, first.IsSuccess(), "%v", first.Failure())
	assert.Equal(t, []string{"a", "b"}, lo.Map(first.Value().SecretList, func(e secretsmanager.SecretEntry, _ int) string { return e.Name }))
	require.NotNil(t, first.Value().NextToken)

	second := c.ListSecrets(ctx, secretsmanager.ListSecrets{MaxResults: lo.ToPtr(2), NextToken: first.Value().NextToken})
	require.True(t, second.IsSuccess())
	assert.Equal(t, []string{"c"}, lo.Map(second.Value().SecretList, func(e secretsmanager.SecretEntry, _ int) string { return e.Name }))
	assert.Nil(t, second.Value().NextToken)
}
