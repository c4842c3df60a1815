package result

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/thoth-station/resultstore/internal/config"
	"github.com/thoth-station/resultstore/internal/metrics"
	"github.com/thoth-station/resultstore/internal/namespace"
	"github.com/thoth-station/resultstore/internal/schema"
	"github.com/thoth-station/resultstore/internal/storage/s3"
	"github.com/thoth-station/resultstore/pkg/errors"
	"github.com/thoth-station/resultstore/pkg/types"
)

const componentName = "result-adapter"

// ObjectStore is the storage an Adapter delegates to. Every id is relative
// to the prefix the store was created for.
type ObjectStore interface {
	IsConnected() bool
	Connect(ctx context.Context) error
	StoreDocument(ctx context.Context, doc types.Document, id string) error
	RetrieveDocument(ctx context.Context, id string) (types.Document, error)
	DocumentExists(ctx context.Context, id string) (bool, error)
	DeleteDocument(ctx context.Context, id string) error
	DocumentListing(ctx context.Context) iter.Seq2[string, error]
}

var _ ObjectStore = (*s3.Client)(nil)

// StoreFactory creates the ObjectStore bound to prefix. params already has
// the configuration defaults merged in.
type StoreFactory func(prefix string, params s3.Config) (ObjectStore, error)

// Result pairs a stored document with its id.
type Result struct {
	ID       string
	Document types.Document
}

// Adapter stores, retrieves and lists the result documents of one result
// type inside one deployment's namespace.
//
// An Adapter holds no locks of its own; it is as safe for concurrent use as
// its ObjectStore.
type Adapter struct {
	resultType string
	deployment string
	prefix     string

	store     ObjectStore
	validator schema.Validator
	logger    *slog.Logger
	metrics   *metrics.Collector
}

type options struct {
	deployment string
	root       string
	params     s3.Config
	validator  schema.Validator
	factory    StoreFactory
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// Option configures an Adapter.
type Option func(*options)

// WithDeploymentName overrides the configured deployment name.
func WithDeploymentName(name string) Option {
	return func(o *options) { o.deployment = name }
}

// WithPrefix overrides the configured root prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.root = prefix }
}

// WithHost sets the object store endpoint URL.
func WithHost(host string) Option {
	return func(o *options) { o.params.Host = host }
}

// WithCredentials sets the access key pair.
func WithCredentials(keyID, secretKey string) Option {
	return func(o *options) {
		o.params.KeyID = keyID
		o.params.SecretKey = secretKey
	}
}

// WithBucket sets the bucket.
func WithBucket(bucket string) Option {
	return func(o *options) { o.params.Bucket = bucket }
}

// WithRegion sets the region.
func WithRegion(region string) Option {
	return func(o *options) { o.params.Region = region }
}

// WithValidator replaces the embedded result schema validator.
func WithValidator(v schema.Validator) Option {
	return func(o *options) { o.validator = v }
}

// WithObjectStore replaces the S3 client factory.
func WithObjectStore(factory StoreFactory) Option {
	return func(o *options) { o.factory = factory }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records adapter and storage operations on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(o *options) { o.metrics = collector }
}

// New creates an Adapter for resultType. Deployment name and root prefix
// come from the options first and cfg second; connection parameters that
// are not given explicitly fall back to cfg.Storage. A nil cfg means
// config.NewDefault().
//
// New panics when resultType is empty: every adapter variant must declare
// its result type, and a missing one is a programming error. No network
// I/O happens here; call Connect before using the adapter.
func New(resultType string, cfg *config.Configuration, opts ...Option) (*Adapter, error) {
	if resultType == "" {
		panic("result: adapter created without a result type")
	}
	if cfg == nil {
		cfg = config.NewDefault()
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.validator == nil {
		o.validator = schema.Default()
	}

	deployment := o.deployment
	if deployment == "" {
		deployment = cfg.Deployment.Name
	}
	prefix, err := namespace.Resolve(
		namespace.Parts{Root: o.root, Deployment: deployment, ResultType: resultType},
		namespace.Parts{Root: cfg.Deployment.BucketPrefix},
	)
	if err != nil {
		return nil, err
	}

	logger := o.logger.With("component", componentName, "result_type", resultType, "prefix", prefix)

	factory := o.factory
	if factory == nil {
		factory = func(prefix string, params s3.Config) (ObjectStore, error) {
			client, err := s3.NewClient(prefix, params,
				s3.WithLogger(o.logger),
				s3.WithMetrics(o.metrics, resultType))
			if err != nil {
				return nil, err
			}
			return client, nil
		}
	}
	store, err := factory(prefix, o.params.Merge(s3.FromStorageConfig(cfg.Storage)))
	if err != nil {
		return nil, err
	}

	logger.Debug("result adapter created", "deployment", deployment)

	return &Adapter{
		resultType: resultType,
		deployment: deployment,
		prefix:     prefix,
		store:      store,
		validator:  o.validator,
		logger:     logger,
		metrics:    o.metrics,
	}, nil
}

// ResultType returns the result type tag of the adapter.
func (a *Adapter) ResultType() string {
	return a.resultType
}

// DeploymentName returns the resolved deployment name.
func (a *Adapter) DeploymentName() string {
	return a.deployment
}

// Prefix returns the namespace prefix every document key lives under.
func (a *Adapter) Prefix() string {
	return a.prefix
}

// GetDocumentID returns the id a document is stored under: the literal
// value of metadata.hostname.
func (a *Adapter) GetDocumentID(doc types.Document) (string, error) {
	id, err := doc.Hostname()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDocumentKeyMissing, "cannot derive document id", err).
			WithComponent(componentName).
			WithOperation("GetDocumentID")
	}
	return id, nil
}

// IsConnected reports whether the underlying store is connected.
func (a *Adapter) IsConnected() bool {
	return a.store.IsConnected()
}

// Connect connects the underlying store. It does nothing when already
// connected.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.store.IsConnected() {
		return nil
	}
	if err := a.store.Connect(ctx); err != nil {
		return err
	}
	a.logger.Info("connected to result store")
	return nil
}

// StoreDocument validates doc, derives its id and writes it, replacing any
// document previously stored under the same id. A document that fails
// validation is never written.
func (a *Adapter) StoreDocument(ctx context.Context, doc types.Document) (string, error) {
	start := time.Now()
	err := a.validator.Validate(doc)
	a.metrics.RecordOperation("ValidateDocument", a.resultType, time.Since(start), 0, err)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeSchemaValidation, "document does not match the result schema", err).
			WithComponent(componentName).
			WithOperation("StoreDocument").
			WithContext("result_type", a.resultType)
	}

	id, err := a.GetDocumentID(doc)
	if err != nil {
		return "", err
	}

	if err := a.store.StoreDocument(ctx, doc, id); err != nil {
		return "", err
	}

	a.logger.Debug("stored result", "id", id)
	return id, nil
}

// RetrieveDocument returns the document stored under id.
func (a *Adapter) RetrieveDocument(ctx context.Context, id string) (types.Document, error) {
	return a.store.RetrieveDocument(ctx, id)
}

// DocumentExists reports whether a document is stored under id.
func (a *Adapter) DocumentExists(ctx context.Context, id string) (bool, error) {
	return a.store.DocumentExists(ctx, id)
}

// DeleteDocument removes the document stored under id.
func (a *Adapter) DeleteDocument(ctx context.Context, id string) error {
	return a.store.DeleteDocument(ctx, id)
}

// DocumentListing returns the ids of all stored documents as a lazy
// sequence. Each call starts a new listing; order is whatever the store
// returns.
func (a *Adapter) DocumentListing(ctx context.Context) iter.Seq2[string, error] {
	return a.store.DocumentListing(ctx)
}

// IterateResults pairs every listed id with its retrieved document. The
// first listing or retrieval error is yielded and ends the iteration.
func (a *Adapter) IterateResults(ctx context.Context) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		for id, err := range a.store.DocumentListing(ctx) {
			if err != nil {
				yield(Result{}, err)
				return
			}
			doc, err := a.store.RetrieveDocument(ctx, id)
			if err != nil {
				yield(Result{ID: id}, err)
				return
			}
			if !yield(Result{ID: id, Document: doc}, nil) {
				return
			}
		}
	}
}
