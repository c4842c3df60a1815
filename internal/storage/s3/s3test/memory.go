// Package s3test provides an in-memory implementation of the S3 API subset
// used by the storage client, for tests.
package s3test

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// APIError implements smithy.APIError.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string                 { return e.Code + ": " + e.Message }
func (e *APIError) ErrorCode() string             { return e.Code }
func (e *APIError) ErrorMessage() string          { return e.Message }
func (e *APIError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// Canned errors returned by MemoryAPI.
var (
	ErrNoSuchKey    = &APIError{Code: "NoSuchKey", Message: "the specified key does not exist"}
	ErrNotFound     = &APIError{Code: "NotFound", Message: "not found"}
	ErrNoSuchBucket = &APIError{Code: "NoSuchBucket", Message: "the specified bucket does not exist"}
)

// MemoryAPI is a thread-safe in-memory bucket set.
type MemoryAPI struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte

	// Optional hooks to inject errors.
	GetErr        error
	PutErr        error
	HeadErr       error
	DeleteErr     error
	ListErr       error
	HeadBucketErr error

	// ListErrAfterPages fails ListObjectsV2 once this many pages were served; 0 disables it.
	ListErrAfterPages int

	// LastPut is the most recent PutObject input; its Body has been consumed.
	LastPut *s3.PutObjectInput

	Calls map[string]int
	pages int
}

// NewMemoryAPI returns a MemoryAPI holding the given empty buckets.
func NewMemoryAPI(buckets ...string) *MemoryAPI {
	m := &MemoryAPI{
		buckets: make(map[string]map[string][]byte),
		Calls:   make(map[string]int),
	}
	for _, b := range buckets {
		m.buckets[b] = make(map[string][]byte)
	}
	return m
}

// Object returns the raw bytes stored under bucket/key.
func (m *MemoryAPI) Object(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.buckets[bucket][key]
	return data, ok
}

// SetObject writes raw bytes, bypassing any client.
func (m *MemoryAPI) SetObject(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.buckets[bucket] == nil {
		m.buckets[bucket] = make(map[string][]byte)
	}
	m.buckets[bucket][key] = data
}

// Keys returns all keys in bucket, sorted.
func (m *MemoryAPI) Keys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.buckets[bucket]))
	for k := range m.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CallCount returns how often op was invoked.
func (m *MemoryAPI) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[op]
}

func (m *MemoryAPI) bucket(name *string) (map[string][]byte, error) {
	b, ok := m.buckets[aws.ToString(name)]
	if !ok {
		return nil, ErrNoSuchBucket
	}
	return b, nil
}

func (m *MemoryAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["GetObject"]++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	b, err := m.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	data, ok := b[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (m *MemoryAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	m.Calls["PutObject"]++
	putErr := m.PutErr
	m.mu.Unlock()
	if putErr != nil {
		return nil, putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	b[aws.ToString(in.Key)] = data
	m.LastPut = in
	return &s3.PutObjectOutput{}, nil
}

func (m *MemoryAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["HeadObject"]++
	if m.HeadErr != nil {
		return nil, m.HeadErr
	}
	b, err := m.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	data, ok := b[aws.ToString(in.Key)]
	if !ok {
		return nil, ErrNotFound
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (m *MemoryAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["DeleteObject"]++
	if m.DeleteErr != nil {
		return nil, m.DeleteErr
	}
	b, err := m.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	delete(b, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

// ListObjectsV2 pages through keys in lexicographic order. With a
// delimiter, keys that continue past it under the prefix are rolled up into
// common prefixes, which count towards MaxKeys as S3 does. Continuation
// tokens are offsets into the sorted entry list.
func (m *MemoryAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["ListObjectsV2"]++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if m.ListErrAfterPages > 0 && m.pages >= m.ListErrAfterPages {
		return nil, &APIError{Code: "InternalError", Message: "listing interrupted"}
	}
	b, err := m.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}

	prefix := aws.ToString(in.Prefix)
	delimiter := aws.ToString(in.Delimiter)
	seen := make(map[string]bool)
	var entries []string
	for k := range b {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		entry := k
		if delimiter != "" {
			if i := strings.Index(rest, delimiter); i >= 0 {
				entry = prefix + rest[:i+len(delimiter)]
			}
		}
		if !seen[entry] {
			seen[entry] = true
			entries = append(entries, entry)
		}
	}
	sort.Strings(entries)

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		start, err = strconv.Atoi(tok)
		if err != nil {
			return nil, &APIError{Code: "InvalidArgument", Message: "bad continuation token"}
		}
	}
	maxKeys := 1000
	if in.MaxKeys != nil && *in.MaxKeys > 0 {
		maxKeys = int(*in.MaxKeys)
	}
	end := start + maxKeys
	if end > len(entries) {
		end = len(entries)
	}

	out := &s3.ListObjectsV2Output{
		KeyCount:    aws.Int32(int32(end - start)),
		IsTruncated: aws.Bool(end < len(entries)),
	}
	for _, e := range entries[start:end] {
		data, isObject := b[e]
		if !isObject || (delimiter != "" && strings.HasSuffix(e, delimiter) && e != prefix) {
			out.CommonPrefixes = append(out.CommonPrefixes, s3types.CommonPrefix{Prefix: aws.String(e)})
			continue
		}
		out.Contents = append(out.Contents, s3types.Object{
			Key:  aws.String(e),
			Size: aws.Int64(int64(len(data))),
		})
	}
	if end < len(entries) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	m.pages++
	return out, nil
}

func (m *MemoryAPI) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["HeadBucket"]++
	if m.HeadBucketErr != nil {
		return nil, m.HeadBucketErr
	}
	if _, err := m.bucket(in.Bucket); err != nil {
		return nil, err
	}
	return &s3.HeadBucketOutput{}, nil
}
