// Package s3 talks to Amazon S3 with path style addressing over its REST/XML
// protocol.
package s3

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"net/url"
	"strconv"

	"github.com/danthegoodman1/CloudConnect/action"
)

const (
	ServiceName = "s3"
	xmlns       = "http://s3.amazonaws.com/doc/2006-03-01/"
)

func rawObjectPath(bucket, key string) string {
	if key == "" {
		return "/" + bucket
	}
	return "/" + bucket + "/" + key
}

// objectPath escapes bucket and key into /bucket/key
func objectPath(bucket, key string) string {
	return (&url.URL{Path: rawObjectPath(bucket, key)}).EscapedPath()
}

type CreateBucket struct {
	Bucket string `validate:"required,min=3,max=63"`
	// Region is sent as the location constraint unless it is us-east-1
	Region string
}

func (a CreateBucket) ToRequest() (*http.Request, error) {
	if err := action.Validate(a); err != nil {
		return nil, err
	}
	if a.Region == "" || a.Region == "us-east-1" {
		return action.NewRequest(http.MethodPut, objectPath(a.Bucket, ""), nil, "")
	}
	body, err := xml.Marshal(CreateBucketConfiguration{Xmlns: xmlns, LocationConstraint: a.Region})
	if err != nil {
		return nil, err
	}
	return action.NewRequest(http.MethodPut, objectPath(a.Bucket, ""), body, "application/xml")
}

func (a CreateBucket) ToResult(resp *http.Response) action.Result[action.Unit] {
	return decodeEmpty(resp)
}

type DeleteBucket struct {
	Bucket string `validate:"required"`
}

func (a DeleteBucket) ToRequest() (*http.Request, error) {
	if err := action.Validate(a); err != nil {
		return nil, err
	}
	return action.NewRequest(http.MethodDelete, objectPath(a.Bucket, ""), nil, "")
}

func (a DeleteBucket) ToResult(resp *http.Response) action.Result[action.Unit] {
	return decodeEmpty(resp)
}

// PutObject uploads Body. Signed with the streaming payload mode the body is
// sent aws-chunked.
type PutObject struct {
	Bucket      string `validate:"required"`
	Key         string `validate:"required"`
	Body        []byte
	ContentType string
	Metadata    map[string]string
}

func (a PutObject) ToRequest() (*http.Request, error) {
	if err := action.Validate(a); err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPut, objectPath(a.Bucket, a.Key), bytes.NewReader(a.Body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if a.ContentType != "" {
		req.Header.Set("Content-Type", a.ContentType)
	}
	for k, v := range a.Metadata {
		req.Header.Set("X-Amz-Meta-"+k, v)
	}
	return req, nil
}

func (a PutObject) ToResult(resp *http.Response) action.Result[PutObjectOutput] {
	return action.DecodeWith(resp, func([]byte) (PutObjectOutput, error) {
		return PutObjectOutput{
			ETag:      resp.Header.Get("ETag"),
			VersionId: resp.Header.Get("X-Amz-Version-Id"),
		}, nil
	}, classify)
}

type GetObject struct {
	Bucket string `validate:"required"`
	Key    string `validate:"required"`
	// Range is an HTTP range such as bytes=0-9
	Range string
}

func (a GetObject) ToRequest() (*http.Request, error) {
	if err := action.Validate(a); err != nil {
		return nil, err
	}
	req, err := action.NewRequest(http.MethodGet, objectPath(a.Bucket, a.Key), nil, "")
	if err != nil {
		return nil, err
	}
	if a.Range != "" {
		req.Header.Set("Range", a.Range)
	}
	return req, nil
}

func (a GetObject) ToResult(resp *http.Response) action.Result[Object] {
	return action.DecodeWith(resp, func(body []byte) (Object, error) {
		obj := Object{
			Body:          body,
			ContentType:   resp.Header.Get("Content-Type"),
			ETag:          resp.Header.Get("ETag"),
			ContentLength: int64(len(body)),
		}
		if lm := resp.Header.Get("Last-Modified"); lm != "" {
			t, err := http.ParseTime(lm)
			if err != nil {
				return Object{}, err
			}
			obj.LastModified = t
		}
		return obj, nil
	}, classify)
}

type DeleteObject struct {
	Bucket string `validate:"required"`
	Key    string `validate:"required"`
}

func (a DeleteObject) ToRequest() (*http.Request, error) {
	if err := action.Validate(a); err != nil {
		return nil, err
	}
	return action.NewRequest(http.MethodDelete, objectPath(a.Bucket, a.Key), nil, "")
}

func (a DeleteObject) ToResult(resp *http.Response) action.Result[action.Unit] {
	return decodeEmpty(resp)
}

type ListObjects struct {
	Bucket            string `validate:"required"`
	Prefix            string
	MaxKeys           int `validate:"omitempty,min=1,max=1000"`
	ContinuationToken string
}

func (a ListObjects) ToRequest() (*http.Request, error) {
	if err := action.Validate(a); err != nil {
		return nil, err
	}
	q := url.Values{"list-type": {"2"}}
	if a.Prefix != "" {
		q.Set("prefix", a.Prefix)
	}
	if a.MaxKeys > 0 {
		q.Set("max-keys", strconv.Itoa(a.MaxKeys))
	}
	if a.ContinuationToken != "" {
		q.Set("continuation-token", a.ContinuationToken)
	}
	return action.NewRequest(http.MethodGet, objectPath(a.Bucket, "")+"?"+q.Encode(), nil, "")
}

func (a ListObjects) ToResult(resp *http.Response) action.Result[ListBucketResult] {
	return decodeXML[ListBucketResult](resp)
}
