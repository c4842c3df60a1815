package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsconfig "github.com/scttfrdmn/cargoship/pkg/aws/config"
	cargoships3 "github.com/scttfrdmn/cargoship/pkg/aws/s3"

	"github.com/thoth-station/resultstore/internal/metrics"
	"github.com/thoth-station/resultstore/internal/namespace"
	rserrors "github.com/thoth-station/resultstore/pkg/errors"
	"github.com/thoth-station/resultstore/pkg/types"
)

const (
	componentName = "s3-client"
	contentType   = "application/json"
)

// API is the subset of the S3 API used by Client. *s3.Client satisfies it.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

var _ API = (*s3.Client)(nil)

// Uploader sends one object through an optimized upload path.
// *cargoships3.Transporter satisfies it.
type Uploader interface {
	Upload(ctx context.Context, archive cargoships3.Archive) (*cargoships3.UploadResult, error)
}

var _ Uploader = (*cargoships3.Transporter)(nil)

// Client stores JSON documents under one key prefix of one bucket.
//
// Connection state is guarded by a mutex; the operations themselves rely
// on the underlying API client being safe for concurrent use.
type Client struct {
	mu        sync.RWMutex
	api       API
	uploader  Uploader
	connected bool

	prefix     string
	cfg        Config
	resultType string
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithAPI makes Connect use api instead of building an SDK client.
func WithAPI(api API) Option {
	return func(c *Client) { c.api = api }
}

// WithUploader sends documents through u instead of PutObject. A failed
// upload falls back to PutObject.
func WithUploader(u Uploader) Option {
	return func(c *Client) { c.uploader = u }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records every remote call on collector, labelled with resultType.
func WithMetrics(collector *metrics.Collector, resultType string) Option {
	return func(c *Client) {
		c.metrics = collector
		c.resultType = resultType
	}
}

// NewClient creates a client bound to prefix. It performs no I/O.
func NewClient(prefix string, cfg Config, opts ...Option) (*Client, error) {
	if prefix == "" {
		return nil, rserrors.NewError(rserrors.ErrCodeMissingConfig, "key prefix cannot be empty").
			WithComponent(componentName)
	}

	c := &Client{
		prefix: prefix,
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", componentName, "bucket", cfg.Bucket, "prefix", prefix)

	return c, nil
}

// Prefix returns the key prefix the client is bound to.
func (c *Client) Prefix() string {
	return c.prefix
}

// Bucket returns the configured bucket.
func (c *Client) Bucket() string {
	return c.cfg.Bucket
}

// IsConnected reports whether Connect has succeeded.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Connect builds the S3 client (unless one was injected) and probes the
// bucket. Calling it again after success is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	if c.cfg.Bucket == "" {
		return rserrors.NewError(rserrors.ErrCodeMissingConfig, "bucket is not set").
			WithComponent(componentName).
			WithOperation("Connect")
	}

	if c.api == nil {
		client, err := c.newSDKClient(ctx)
		if err != nil {
			return err
		}
		c.api = client

		if c.uploader == nil && c.cfg.EnableCargoShipOptimization {
			c.uploader = cargoships3.NewTransporter(client, awsconfig.S3Config{
				Bucket:             c.cfg.Bucket,
				StorageClass:       awsconfig.StorageClassStandard,
				MultipartThreshold: 32 * 1024 * 1024,
				MultipartChunkSize: 16 * 1024 * 1024,
				Concurrency:        4,
			})
			c.logger.Info("CargoShip upload optimization enabled")
		}
	}

	start := time.Now()
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.cfg.Bucket)})
	c.metrics.RecordOperation("Connect", c.resultType, time.Since(start), 0, err)
	if err != nil {
		if isNoSuchBucket(err) || isNotFound(err) {
			return rserrors.Wrap(rserrors.ErrCodeBucketNotFound, "bucket not found: "+c.cfg.Bucket, err).
				WithComponent(componentName).
				WithOperation("Connect")
		}
		return rserrors.Wrap(rserrors.ErrCodeConnectionFailed, "S3 health check failed", err).
			WithComponent(componentName).
			WithOperation("Connect").
			WithContext("host", c.cfg.Host)
	}

	c.connected = true
	c.logger.Debug("connected to object store", "host", c.cfg.Host, "region", c.cfg.Region)
	return nil
}

func (c *Client) newSDKClient(ctx context.Context) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if c.cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(c.cfg.Region))
	}
	if c.cfg.KeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.cfg.KeyID, c.cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, rserrors.Wrap(rserrors.ErrCodeConnectionFailed, "failed to load AWS config", err).
			WithComponent(componentName).
			WithOperation("Connect")
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.cfg.Host != "" {
			o.BaseEndpoint = aws.String(c.cfg.Host)
		}
		if c.cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}

// client returns the API client or a not-connected error.
func (c *Client) client(operation string) (API, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return nil, rserrors.NewError(rserrors.ErrCodeNotInitialized, "client is not connected").
			WithComponent(componentName).
			WithOperation(operation)
	}
	return c.api, nil
}

// StoreDocument writes doc as JSON under id, replacing any previous object.
//
// PutObject writes set Content-Type to application/json. The CargoShip
// transporter has no content type field, so objects it uploads get the
// store's default; reads never depend on it.
func (c *Client) StoreDocument(ctx context.Context, doc types.Document, id string) (err error) {
	start := time.Now()
	var size int64
	defer func() {
		c.metrics.RecordOperation("StoreDocument", c.resultType, time.Since(start), size, err)
	}()

	api, err := c.client("StoreDocument")
	if err != nil {
		return err
	}
	if err = namespace.ValidateID(id); err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return rserrors.Wrap(rserrors.ErrCodeDocumentEncode, "failed to encode document "+id, err).
			WithComponent(componentName).
			WithOperation("StoreDocument")
	}
	size = int64(len(data))
	key := namespace.Key(c.prefix, id)

	if c.uploader != nil {
		result, uploadErr := c.uploader.Upload(ctx, cargoships3.Archive{
			Key:          key,
			Reader:       bytes.NewReader(data),
			Size:         size,
			StorageClass: awsconfig.StorageClassStandard,
		})
		if uploadErr == nil {
			c.logger.Debug("CargoShip upload completed", "key", key, "size", size, "duration", result.Duration)
			return nil
		}
		c.logger.Warn("CargoShip upload failed, falling back to PutObject", "key", key, "error", uploadErr)
	}

	_, err = api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return c.translateError(err, "StoreDocument", key, rserrors.ErrCodeStorageWrite)
	}

	c.logger.Debug("stored document", "id", id, "size", size)
	return nil
}

// RetrieveDocument reads and decodes the document stored under id.
func (c *Client) RetrieveDocument(ctx context.Context, id string) (doc types.Document, err error) {
	start := time.Now()
	var size int64
	defer func() {
		c.metrics.RecordOperation("RetrieveDocument", c.resultType, time.Since(start), size, err)
	}()

	api, err := c.client("RetrieveDocument")
	if err != nil {
		return nil, err
	}
	if err = namespace.ValidateID(id); err != nil {
		return nil, err
	}

	key := namespace.Key(c.prefix, id)
	out, err := api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, c.translateError(err, "RetrieveDocument", key, rserrors.ErrCodeStorageRead)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, c.translateError(err, "RetrieveDocument", key, rserrors.ErrCodeStorageRead)
	}
	size = int64(len(data))

	doc, err = types.Decode(data)
	if err != nil {
		return nil, rserrors.Wrap(rserrors.ErrCodeDocumentDecode, "failed to decode document "+id, err).
			WithComponent(componentName).
			WithOperation("RetrieveDocument").
			WithContext("key", key)
	}
	if doc == nil {
		// A stored JSON null is not a document.
		return nil, rserrors.NewError(rserrors.ErrCodeDocumentDecode, "stored document "+id+" is null").
			WithComponent(componentName).
			WithOperation("RetrieveDocument").
			WithContext("key", key)
	}

	return doc, nil
}

// DocumentExists reports whether an object is stored under id.
func (c *Client) DocumentExists(ctx context.Context, id string) (exists bool, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordOperation("DocumentExists", c.resultType, time.Since(start), 0, err)
	}()

	api, err := c.client("DocumentExists")
	if err != nil {
		return false, err
	}
	if err = namespace.ValidateID(id); err != nil {
		return false, err
	}

	key := namespace.Key(c.prefix, id)
	_, err = api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, c.translateError(err, "DocumentExists", key, rserrors.ErrCodeStorageRead)
	}
	return true, nil
}

// DeleteDocument removes the object stored under id. Deleting a missing
// id succeeds, matching S3 semantics.
func (c *Client) DeleteDocument(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordOperation("DeleteDocument", c.resultType, time.Since(start), 0, err)
	}()

	api, err := c.client("DeleteDocument")
	if err != nil {
		return err
	}
	if err = namespace.ValidateID(id); err != nil {
		return err
	}

	key := namespace.Key(c.prefix, id)
	_, err = api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return c.translateError(err, "DeleteDocument", key, rserrors.ErrCodeStorageWrite)
	}
	return nil
}

// DocumentListing returns a lazy sequence of the document ids directly under
// the prefix. Keys below a deeper separator belong to a nested namespace and
// are not listed. Pages are fetched as the sequence is consumed; each call
// starts a fresh listing. On failure the error is yielded once and the
// sequence ends.
func (c *Client) DocumentListing(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		api, err := c.client("DocumentListing")
		if err != nil {
			yield("", err)
			return
		}

		input := &s3.ListObjectsV2Input{
			Bucket:    aws.String(c.cfg.Bucket),
			Prefix:    aws.String(c.prefix + namespace.Separator),
			Delimiter: aws.String(namespace.Separator),
		}
		if c.cfg.PageSize > 0 {
			input.MaxKeys = aws.Int32(c.cfg.PageSize)
		}

		paginator := s3.NewListObjectsV2Paginator(api, input)
		for paginator.HasMorePages() {
			start := time.Now()
			page, err := paginator.NextPage(ctx)
			c.metrics.RecordOperation("ListPage", c.resultType, time.Since(start), 0, err)
			if err != nil {
				yield("", c.translateError(err, "DocumentListing", c.prefix, rserrors.ErrCodeStorageList))
				return
			}

			for _, obj := range page.Contents {
				id, ok := namespace.ID(c.prefix, aws.ToString(obj.Key))
				if !ok {
					continue
				}
				if !yield(id, nil) {
					return
				}
			}
		}
	}
}

// Close marks the client disconnected. The SDK client holds no resources
// that need releasing.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}
