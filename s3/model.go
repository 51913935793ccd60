package s3

import (
	"encoding/xml"
	"time"
)

type ObjectSummary struct {
	Key          string    `xml:"Key"`
	Size         int64     `xml:"Size"`
	ETag         string    `xml:"ETag"`
	LastModified time.Time `xml:"LastModified"`
}

type ListBucketResult struct {
	XMLName               xml.Name        `xml:"ListBucketResult"`
	Name                  string          `xml:"Name"`
	Prefix                string          `xml:"Prefix"`
	KeyCount              int             `xml:"KeyCount"`
	MaxKeys               int             `xml:"MaxKeys"`
	IsTruncated           bool            `xml:"IsTruncated"`
	Contents              []ObjectSummary `xml:"Contents"`
	NextContinuationToken string          `xml:"NextContinuationToken,omitempty"`
}

type CreateBucketConfiguration struct {
	XMLName            xml.Name `xml:"CreateBucketConfiguration"`
	Xmlns              string   `xml:"xmlns,attr"`
	LocationConstraint string   `xml:"LocationConstraint"`
}

type PutObjectOutput struct {
	ETag      string
	VersionId string
}

type Object struct {
	Body          []byte
	ContentType   string
	ETag          string
	LastModified  time.Time
	ContentLength int64
}
