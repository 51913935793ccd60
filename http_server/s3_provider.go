package http_server

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/danthegoodman1/CloudConnect/s3"
	"github.com/danthegoodman1/CloudConnect/sigv4"
	"github.com/danthegoodman1/CloudConnect/storage"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

const defaultMaxKeys = 1000

type StoredBucket struct {
	Name         string
	Region       string
	CreationDate time.Time
}

type StoredObject struct {
	Body         []byte
	ContentType  string
	ETag         string
	LastModified time.Time
	Metadata     map[string]string
}

// FakeS3 serves path style bucket and object requests. Objects are keyed
// bucket/key in their storage.
type FakeS3 struct {
	*BaseAWSProvider
	buckets storage.Storage[StoredBucket]
	objects storage.Storage[StoredObject]
}

func NewFakeS3(region string, buckets storage.Storage[StoredBucket], objects storage.Storage[StoredObject]) *FakeS3 {
	return &FakeS3{
		BaseAWSProvider: NewBaseAWSProvider(s3.ServiceName, region),
		buckets:         buckets,
		objects:         objects,
	}
}

func (p *FakeS3) Register(e *echo.Echo) {
	e.PUT("/:bucket", p.createBucket)
	e.DELETE("/:bucket", p.deleteBucket)
	e.GET("/:bucket", p.listObjects)
	e.PUT("/:bucket/*", p.putObject)
	e.GET("/:bucket/*", p.getObject)
	e.DELETE("/:bucket/*", p.deleteObject)
}

type s3ErrorBody struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource,omitempty"`
	RequestId string   `xml:"RequestId"`
}

func writeXMLError(c echo.Context, err error) error {
	ae := asAPIError(c, err)
	cc, _ := c.(*CustomContext)
	return c.XML(ae.status, s3ErrorBody{
		Code:      ae.code,
		Message:   ae.message,
		Resource:  c.Request().URL.Path,
		RequestId: cc.RequestID,
	})
}

func noSuchBucket() error {
	return newAPIError(http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
}

func noSuchKey() error {
	return newAPIError(http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
}

// objectKey is the wildcard part of the path, unescaped once
func objectKey(c echo.Context) string {
	key := c.Param("*")
	if c.Request().URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(key); err == nil {
			return unescaped
		}
	}
	return key
}

func storedKey(bucket, key string) string {
	return bucket + "/" + key
}

func (p *FakeS3) bucketExists(c echo.Context, bucket string) error {
	_, err := p.buckets.Get(c.Request().Context(), bucket)
	if errors.Is(err, storage.ErrNotFound) {
		return noSuchBucket()
	}
	return err
}

func (p *FakeS3) createBucket(c echo.Context) error {
	bucket := c.Param("bucket")
	region := p.region
	body, err := readObjectBody(c)
	if err != nil {
		return writeXMLError(c, err)
	}
	if len(bytes.TrimSpace(body)) > 0 {
		var conf s3.CreateBucketConfiguration
		if err = xml.Unmarshal(body, &conf); err != nil {
			return writeXMLError(c, newAPIError(http.StatusBadRequest, "MalformedXML", "The XML you provided was not well-formed"))
		}
		region = lo.Ternary(conf.LocationConstraint == "", region, conf.LocationConstraint)
	}

	_, err = p.buckets.Update(c.Request().Context(), bucket, func(existing StoredBucket, exists bool) (StoredBucket, error) {
		if exists {
			return existing, newAPIError(http.StatusConflict, "BucketAlreadyOwnedByYou", "Your previous request to create the named bucket succeeded and you already own it.")
		}
		return StoredBucket{Name: bucket, Region: region, CreationDate: p.now().UTC()}, nil
	})
	if err != nil {
		return writeXMLError(c, err)
	}
	c.Response().Header().Set("Location", "/"+bucket)
	return c.NoContent(http.StatusOK)
}

func (p *FakeS3) deleteBucket(c echo.Context) error {
	ctx := c.Request().Context()
	bucket := c.Param("bucket")
	if err := p.bucketExists(c, bucket); err != nil {
		return writeXMLError(c, err)
	}
	keys, err := p.objects.KeySet(ctx, storedKey(bucket, ""))
	if err != nil {
		return writeXMLError(c, err)
	}
	if len(keys) > 0 {
		return writeXMLError(c, newAPIError(http.StatusConflict, "BucketNotEmpty", "The bucket you tried to delete is not empty"))
	}
	if _, err = p.buckets.Remove(ctx, bucket); err != nil {
		return writeXMLError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// readObjectBody reads the request body, decoding aws-chunked uploads, checking every chunk signature
// against the seed signature the middleware accepted.
func readObjectBody(c echo.Context) ([]byte, error) {
	req := c.Request()
	if !strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") &&
		req.Header.Get("X-Amz-Content-Sha256") != sigv4.StreamingPayload {
		return io.ReadAll(req.Body)
	}

	cc, _ := c.(*CustomContext)
	if cc.keySecret == "" {
		return nil, newAPIError(http.StatusBadRequest, "InvalidRequest", "aws-chunked uploads need a signature verifying server")
	}
	body, err := sigv4.DecodeChunkedBody(req, cc.keySecret, cc.authHeader)
	switch {
	case errors.Is(err, sigv4.ErrInvalidSignature):
		return nil, newAPIError(http.StatusForbidden, "SignatureDoesNotMatch", "The chunk signature we calculated does not match the signature you provided.")
	case err != nil:
		return nil, newAPIError(http.StatusBadRequest, "IncompleteBody", err.Error())
	}
	return body, nil
}

func (p *FakeS3) putObject(c echo.Context) error {
	bucket, key := c.Param("bucket"), objectKey(c)
	if err := p.bucketExists(c, bucket); err != nil {
		return writeXMLError(c, err)
	}
	body, err := readObjectBody(c)
	if err != nil {
		return writeXMLError(c, err)
	}

	sum := md5.Sum(body)
	obj := StoredObject{
		Body:         body,
		ContentType:  lo.Ternary(c.Request().Header.Get("Content-Type") == "", "binary/octet-stream", c.Request().Header.Get("Content-Type")),
		ETag:         `"` + hex.EncodeToString(sum[:]) + `"`,
		LastModified: p.now().UTC().Truncate(time.Second),
		Metadata:     map[string]string{},
	}
	for name, values := range c.Request().Header {
		if strings.HasPrefix(strings.ToLower(name), "x-amz-meta-") && len(values) > 0 {
			obj.Metadata[strings.ToLower(name[len("x-amz-meta-"):])] = values[0]
		}
	}
	if err = p.objects.Set(c.Request().Context(), storedKey(bucket, key), obj); err != nil {
		return writeXMLError(c, err)
	}

	c.Response().Header().Set("ETag", obj.ETag)
	return c.NoContent(http.StatusOK)
}

func (p *FakeS3) getObject(c echo.Context) error {
	bucket, key := c.Param("bucket"), objectKey(c)
	if err := p.bucketExists(c, bucket); err != nil {
		return writeXMLError(c, err)
	}
	obj, err := p.objects.Get(c.Request().Context(), storedKey(bucket, key))
	if errors.Is(err, storage.ErrNotFound) {
		return writeXMLError(c, noSuchKey())
	}
	if err != nil {
		return writeXMLError(c, err)
	}

	header := c.Response().Header()
	header.Set("Content-Type", obj.ContentType)
	header.Set("ETag", obj.ETag)
	for name, value := range obj.Metadata {
		header.Set("X-Amz-Meta-"+name, value)
	}
	// handles Range and the conditional headers
	http.ServeContent(c.Response(), c.Request(), "", obj.LastModified, bytes.NewReader(obj.Body))
	return nil
}

func (p *FakeS3) deleteObject(c echo.Context) error {
	bucket := c.Param("bucket")
	if err := p.bucketExists(c, bucket); err != nil {
		return writeXMLError(c, err)
	}
	if _, err := p.objects.Remove(c.Request().Context(), storedKey(bucket, objectKey(c))); err != nil {
		return writeXMLError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// listObjects implements ListObjectsV2, the continuation token is the first
// key of the next page.
func (p *FakeS3) listObjects(c echo.Context) error {
	ctx := c.Request().Context()
	bucket := c.Param("bucket")
	if err := p.bucketExists(c, bucket); err != nil {
		return writeXMLError(c, err)
	}

	query := c.QueryParams()
	prefix := query.Get("prefix")
	maxKeys := defaultMaxKeys
	if raw := query.Get("max-keys"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return writeXMLError(c, newAPIError(http.StatusBadRequest, "InvalidArgument", "Provided max-keys not an integer or within integer range"))
		}
		maxKeys = parsed
	}

	keys, err := p.objects.KeySet(ctx, storedKey(bucket, prefix))
	if err != nil {
		return writeXMLError(c, err)
	}
	keys = lo.Map(keys, func(k string, _ int) string { return strings.TrimPrefix(k, storedKey(bucket, "")) })
	if token := query.Get("continuation-token"); token != "" {
		keys = lo.Filter(keys, func(k string, _ int) bool { return k >= token })
	}

	result := s3.ListBucketResult{Name: bucket, Prefix: prefix, MaxKeys: maxKeys}
	for _, key := range keys {
		if len(result.Contents) == maxKeys {
			result.IsTruncated = true
			result.NextContinuationToken = key
			break
		}
		obj, err := p.objects.Get(ctx, storedKey(bucket, key))
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return writeXMLError(c, err)
		}
		result.Contents = append(result.Contents, s3.ObjectSummary{
			Key:          key,
			Size:         int64(len(obj.Body)),
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}
	result.KeyCount = len(result.Contents)
	return c.XML(http.StatusOK, result)
}
