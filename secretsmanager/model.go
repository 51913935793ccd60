package secretsmanager

import "github.com/danthegoodman1/CloudConnect/amazon"

type Tag struct {
	Key   string
	Value string
}

type CreatedSecret struct {
	ARN       amazon.ARN
	Name      string
	VersionId string
}

type DeletedSecret struct {
	Name         string
	ARN          amazon.ARN
	DeletionDate amazon.Timestamp
}

type SecretValue struct {
	ARN           amazon.ARN
	Name          string
	CreatedDate   *amazon.Timestamp `json:",omitempty"`
	SecretBinary  []byte            `json:",omitempty"`
	SecretString  *string           `json:",omitempty"`
	VersionId     string
	VersionStages []string `json:",omitempty"`
}

type SecretEntry struct {
	ARN             amazon.ARN
	Name            string
	Description     string            `json:",omitempty"`
	LastChangedDate *amazon.Timestamp `json:",omitempty"`
	DeletedDate     *amazon.Timestamp `json:",omitempty"`
	Tags            []Tag             `json:",omitempty"`
}

type Secrets struct {
	SecretList []SecretEntry
	NextToken  *string `json:",omitempty"`
}

// UpdatedSecret is returned by both PutSecretValue and UpdateSecret
type UpdatedSecret struct {
	ARN       amazon.ARN
	Name      string
	VersionId *string `json:",omitempty"`
}
