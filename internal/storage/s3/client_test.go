package s3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cargoships3 "github.com/scttfrdmn/cargoship/pkg/aws/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoth-station/resultstore/internal/config"
	"github.com/thoth-station/resultstore/internal/metrics"
	"github.com/thoth-station/resultstore/internal/storage/s3/s3test"
	rserrors "github.com/thoth-station/resultstore/pkg/errors"
	"github.com/thoth-station/resultstore/pkg/types"
)

const (
	testBucket = "thoth"
	testPrefix = "data/stage/analysis"
)

func newTestClient(t *testing.T, opts ...Option) (*Client, *s3test.MemoryAPI) {
	t.Helper()
	api := s3test.NewMemoryAPI(testBucket)
	cfg := Config{Bucket: testBucket, PageSize: 2}
	client, err := NewClient(testPrefix, cfg, append([]Option{WithAPI(api)}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	return client, api
}

func testDocument(host string) types.Document {
	return types.Document{
		"metadata": map[string]any{"hostname": host, "analyzer": "thoth-package-extract"},
		"result":   map[string]any{"packages": []any{"bash", "glibc"}, "count": json.Number("2")},
	}
}

func collect(t *testing.T, c *Client) []string {
	t.Helper()
	var ids []string
	for id, err := range c.DocumentListing(context.Background()) {
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestNewClient_EmptyPrefix(t *testing.T) {
	client, err := NewClient("", Config{Bucket: testBucket})
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, errors.Is(err, rserrors.ErrConfiguration))
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		api := s3test.NewMemoryAPI(testBucket)
		client, err := NewClient(testPrefix, Config{Bucket: testBucket}, WithAPI(api))
		require.NoError(t, err)

		assert.False(t, client.IsConnected())
		require.NoError(t, client.Connect(ctx))
		assert.True(t, client.IsConnected())
		require.NoError(t, client.Connect(ctx))
		assert.True(t, client.IsConnected())
		assert.Equal(t, 1, api.CallCount("HeadBucket"), "second Connect must not reconnect")
	})

	t.Run("missing bucket config", func(t *testing.T) {
		client, err := NewClient(testPrefix, Config{}, WithAPI(s3test.NewMemoryAPI()))
		require.NoError(t, err)
		err = client.Connect(ctx)
		require.Error(t, err)
		assert.Equal(t, rserrors.ErrCodeMissingConfig, rserrors.CodeOf(err))
		assert.False(t, client.IsConnected())
	})

	t.Run("bucket does not exist", func(t *testing.T) {
		client, err := NewClient(testPrefix, Config{Bucket: "missing"}, WithAPI(s3test.NewMemoryAPI(testBucket)))
		require.NoError(t, err)
		err = client.Connect(ctx)
		require.Error(t, err)
		assert.Equal(t, rserrors.ErrCodeBucketNotFound, rserrors.CodeOf(err))
	})

	t.Run("transport failure keeps cause", func(t *testing.T) {
		api := s3test.NewMemoryAPI(testBucket)
		cause := errors.New("dial tcp: connection refused")
		api.HeadBucketErr = cause
		client, err := NewClient(testPrefix, Config{Bucket: testBucket}, WithAPI(api))
		require.NoError(t, err)

		err = client.Connect(ctx)
		require.Error(t, err)
		assert.Equal(t, rserrors.ErrCodeConnectionFailed, rserrors.CodeOf(err))
		assert.ErrorIs(t, err, cause)
		assert.False(t, client.IsConnected())
	})

	t.Run("close disconnects", func(t *testing.T) {
		client, _ := newTestClient(t)
		require.NoError(t, client.Close())
		assert.False(t, client.IsConnected())
	})
}

func TestOperationsRequireConnect(t *testing.T) {
	ctx := context.Background()
	api := s3test.NewMemoryAPI(testBucket)
	client, err := NewClient(testPrefix, Config{Bucket: testBucket}, WithAPI(api))
	require.NoError(t, err)

	err = client.StoreDocument(ctx, testDocument("h"), "h")
	assert.ErrorIs(t, err, rserrors.ErrNotConnected)

	_, err = client.RetrieveDocument(ctx, "h")
	assert.ErrorIs(t, err, rserrors.ErrNotConnected)

	_, err = client.DocumentExists(ctx, "h")
	assert.ErrorIs(t, err, rserrors.ErrNotConnected)

	assert.ErrorIs(t, client.DeleteDocument(ctx, "h"), rserrors.ErrNotConnected)

	for _, err := range client.DocumentListing(ctx) {
		assert.ErrorIs(t, err, rserrors.ErrNotConnected)
	}
	assert.Equal(t, 0, api.CallCount("PutObject"))
}

func TestInvalidDocumentID(t *testing.T) {
	ctx := context.Background()
	client, api := newTestClient(t)

	for _, id := range []string{"", "x/solver", "../escape"} {
		t.Run(fmt.Sprintf("%q", id), func(t *testing.T) {
			err := client.StoreDocument(ctx, testDocument("h"), id)
			assert.ErrorIs(t, err, rserrors.ErrInvalidDocumentID)

			_, err = client.RetrieveDocument(ctx, id)
			assert.ErrorIs(t, err, rserrors.ErrInvalidDocumentID)

			_, err = client.DocumentExists(ctx, id)
			assert.ErrorIs(t, err, rserrors.ErrInvalidDocumentID)

			assert.ErrorIs(t, client.DeleteDocument(ctx, id), rserrors.ErrInvalidDocumentID)
		})
	}
	assert.Equal(t, 0, api.CallCount("PutObject"))
	assert.Equal(t, 0, api.CallCount("GetObject"))
	assert.Equal(t, 0, api.CallCount("DeleteObject"))
}

// recordingUploader stores uploads in a MemoryAPI bucket.
type recordingUploader struct {
	api      *s3test.MemoryAPI
	err      error
	archives []cargoships3.Archive
}

func (u *recordingUploader) Upload(_ context.Context, archive cargoships3.Archive) (*cargoships3.UploadResult, error) {
	u.archives = append(u.archives, archive)
	if u.err != nil {
		return nil, u.err
	}
	data, err := io.ReadAll(archive.Reader)
	if err != nil {
		return nil, err
	}
	u.api.SetObject(testBucket, archive.Key, data)
	return &cargoships3.UploadResult{Key: archive.Key}, nil
}

func TestStoreDocument_Uploader(t *testing.T) {
	ctx := context.Background()

	t.Run("upload replaces PutObject", func(t *testing.T) {
		api := s3test.NewMemoryAPI(testBucket)
		uploader := &recordingUploader{api: api}
		client, err := NewClient(testPrefix, Config{Bucket: testBucket}, WithAPI(api), WithUploader(uploader))
		require.NoError(t, err)
		require.NoError(t, client.Connect(ctx))

		doc := testDocument("host-1")
		require.NoError(t, client.StoreDocument(ctx, doc, "host-1"))

		require.Len(t, uploader.archives, 1)
		archive := uploader.archives[0]
		assert.Equal(t, testPrefix+"/host-1", archive.Key)
		raw, ok := api.Object(testBucket, archive.Key)
		require.True(t, ok)
		assert.Equal(t, int64(len(raw)), archive.Size)
		assert.Empty(t, archive.Metadata, "no user metadata is attached")
		assert.Equal(t, 0, api.CallCount("PutObject"))

		got, err := client.RetrieveDocument(ctx, "host-1")
		require.NoError(t, err)
		assert.Equal(t, doc, got)
	})

	t.Run("failed upload falls back to PutObject", func(t *testing.T) {
		api := s3test.NewMemoryAPI(testBucket)
		uploader := &recordingUploader{api: api, err: errors.New("multipart upload aborted")}
		client, err := NewClient(testPrefix, Config{Bucket: testBucket}, WithAPI(api), WithUploader(uploader))
		require.NoError(t, err)
		require.NoError(t, client.Connect(ctx))

		require.NoError(t, client.StoreDocument(ctx, testDocument("host-1"), "host-1"))

		assert.Len(t, uploader.archives, 1)
		assert.Equal(t, 1, api.CallCount("PutObject"))
		require.NotNil(t, api.LastPut)
		assert.Equal(t, "application/json", aws.ToString(api.LastPut.ContentType))
		assert.Empty(t, api.LastPut.Metadata)
		_, ok := api.Object(testBucket, testPrefix+"/host-1")
		assert.True(t, ok)
	})
}

func TestStoreAndRetrieve(t *testing.T) {
	ctx := context.Background()
	client, api := newTestClient(t)

	doc := testDocument("host-1")
	require.NoError(t, client.StoreDocument(ctx, doc, "host-1"))

	raw, ok := api.Object(testBucket, testPrefix+"/host-1")
	require.True(t, ok, "document should be stored under prefix/id")
	assert.JSONEq(t, `{"metadata":{"hostname":"host-1","analyzer":"thoth-package-extract"},"result":{"packages":["bash","glibc"],"count":2}}`, string(raw))

	got, err := client.RetrieveDocument(ctx, "host-1")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestStoreAndRetrieve_LargeIntegers(t *testing.T) {
	ctx := context.Background()
	client, api := newTestClient(t)

	doc := types.Document{
		"metadata": map[string]any{"hostname": "host-1"},
		"result":   map[string]any{"inode": int64(9007199254740993), "size": uint64(18446744073709551615)},
	}
	require.NoError(t, client.StoreDocument(ctx, doc, "host-1"))

	raw, ok := api.Object(testBucket, testPrefix+"/host-1")
	require.True(t, ok)
	assert.Contains(t, string(raw), `"inode":9007199254740993`)

	got, err := client.RetrieveDocument(ctx, "host-1")
	require.NoError(t, err)
	result := got["result"].(map[string]any)
	assert.Equal(t, json.Number("9007199254740993"), result["inode"])
	assert.Equal(t, json.Number("18446744073709551615"), result["size"])

	// Storing the retrieved document again writes the same bytes.
	require.NoError(t, client.StoreDocument(ctx, got, "host-1"))
	again, _ := api.Object(testBucket, testPrefix+"/host-1")
	assert.Equal(t, string(raw), string(again))
}

func TestStoreOverwrites(t *testing.T) {
	ctx := context.Background()
	client, api := newTestClient(t)

	first := testDocument("host-1")
	second := testDocument("host-1")
	second["result"] = map[string]any{"packages": []any{}}

	require.NoError(t, client.StoreDocument(ctx, first, "host-1"))
	require.NoError(t, client.StoreDocument(ctx, second, "host-1"))

	assert.Equal(t, []string{testPrefix + "/host-1"}, api.Keys(testBucket))
	got, err := client.RetrieveDocument(ctx, "host-1")
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestStoreDocument_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unencodable document", func(t *testing.T) {
		client, api := newTestClient(t)
		err := client.StoreDocument(ctx, types.Document{"bad": make(chan int)}, "h")
		require.Error(t, err)
		assert.Equal(t, rserrors.ErrCodeDocumentEncode, rserrors.CodeOf(err))
		assert.Equal(t, 0, api.CallCount("PutObject"))
	})

	t.Run("put failure propagates cause", func(t *testing.T) {
		client, api := newTestClient(t)
		cause := &s3test.APIError{Code: "SlowDown", Message: "reduce request rate"}
		api.PutErr = cause
		err := client.StoreDocument(ctx, testDocument("h"), "h")
		require.Error(t, err)
		assert.Equal(t, rserrors.ErrCodeStorageWrite, rserrors.CodeOf(err))
		assert.ErrorIs(t, err, cause)
	})
}

func TestRetrieveDocument_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		client, _ := newTestClient(t)
		_, err := client.RetrieveDocument(ctx, "never-stored")
		require.Error(t, err)
		assert.ErrorIs(t, err, rserrors.ErrNotFound)
	})

	t.Run("not found via api error code", func(t *testing.T) {
		client, api := newTestClient(t)
		api.GetErr = s3test.ErrNoSuchKey
		_, err := client.RetrieveDocument(ctx, "h")
		assert.ErrorIs(t, err, rserrors.ErrNotFound)
	})

	for name, raw := range map[string]string{
		"invalid json":  "{not json",
		"json array":    `["a"]`,
		"json null":     "null",
		"trailing data": `{"a": 1} {"b": 2}`,
	} {
		t.Run(name, func(t *testing.T) {
			client, api := newTestClient(t)
			api.SetObject(testBucket, testPrefix+"/h", []byte(raw))
			_, err := client.RetrieveDocument(ctx, "h")
			require.Error(t, err)
			assert.ErrorIs(t, err, rserrors.ErrDeserialization)
		})
	}

	t.Run("other failure", func(t *testing.T) {
		client, api := newTestClient(t)
		api.GetErr = errors.New("connection reset by peer")
		_, err := client.RetrieveDocument(ctx, "h")
		require.Error(t, err)
		assert.Equal(t, rserrors.ErrCodeStorageRead, rserrors.CodeOf(err))
	})
}

func TestDocumentExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	client, api := newTestClient(t)

	exists, err := client.DocumentExists(ctx, "host-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, client.StoreDocument(ctx, testDocument("host-1"), "host-1"))
	exists, err = client.DocumentExists(ctx, "host-1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, client.DeleteDocument(ctx, "host-1"))
	exists, err = client.DocumentExists(ctx, "host-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, client.DeleteDocument(ctx, "host-1"), "deleting a missing id succeeds")

	api.HeadErr = errors.New("boom")
	_, err = client.DocumentExists(ctx, "host-1")
	assert.Error(t, err)
}

func TestDocumentListing(t *testing.T) {
	ctx := context.Background()

	t.Run("empty namespace", func(t *testing.T) {
		client, _ := newTestClient(t)
		assert.Empty(t, collect(t, client))
	})

	t.Run("pages through all ids and ignores other namespaces", func(t *testing.T) {
		client, api := newTestClient(t)
		for i := 0; i < 5; i++ {
			id := fmt.Sprintf("host-%d", i)
			require.NoError(t, client.StoreDocument(ctx, testDocument(id), id))
		}
		api.SetObject(testBucket, "data/stage/solver/host-9", []byte(`{}`))
		api.SetObject(testBucket, "data/stage/analysis-other/host-9", []byte(`{}`))

		ids := collect(t, client)
		assert.Equal(t, []string{"host-0", "host-1", "host-2", "host-3", "host-4"}, ids)
		// PageSize 2 over 5 keys.
		assert.Equal(t, 3, api.CallCount("ListObjectsV2"))
	})

	t.Run("nested namespace is not listed", func(t *testing.T) {
		client, api := newTestClient(t)
		require.NoError(t, client.StoreDocument(ctx, testDocument("host-1"), "host-1"))
		require.NoError(t, client.StoreDocument(ctx, testDocument("zeta"), "zeta"))

		// A namespace whose root is this client's prefix.
		nested, err := NewClient(testPrefix+"/x/solver", Config{Bucket: testBucket}, WithAPI(api))
		require.NoError(t, err)
		require.NoError(t, nested.Connect(ctx))
		require.NoError(t, nested.StoreDocument(ctx, testDocument("other"), "other"))
		require.NoError(t, nested.StoreDocument(ctx, testDocument("more"), "more"))

		assert.Equal(t, []string{"host-1", "zeta"}, collect(t, client))
		assert.ElementsMatch(t, []string{"more", "other"}, collect(t, nested))
	})

	t.Run("restartable", func(t *testing.T) {
		client, _ := newTestClient(t)
		require.NoError(t, client.StoreDocument(ctx, testDocument("a"), "a"))
		require.NoError(t, client.StoreDocument(ctx, testDocument("b"), "b"))

		seq := client.DocumentListing(ctx)
		var first, second []string
		for id, err := range seq {
			require.NoError(t, err)
			first = append(first, id)
		}
		for id, err := range seq {
			require.NoError(t, err)
			second = append(second, id)
		}
		assert.Equal(t, first, second)
	})

	t.Run("lazy: stopping early fetches one page", func(t *testing.T) {
		client, api := newTestClient(t)
		for i := 0; i < 6; i++ {
			id := fmt.Sprintf("host-%d", i)
			require.NoError(t, client.StoreDocument(ctx, testDocument(id), id))
		}
		for range client.DocumentListing(ctx) {
			break
		}
		assert.Equal(t, 1, api.CallCount("ListObjectsV2"))
	})

	t.Run("page failure is yielded", func(t *testing.T) {
		client, api := newTestClient(t)
		for i := 0; i < 4; i++ {
			id := fmt.Sprintf("host-%d", i)
			require.NoError(t, client.StoreDocument(ctx, testDocument(id), id))
		}
		api.ListErrAfterPages = 1

		var ids []string
		var lastErr error
		for id, err := range client.DocumentListing(ctx) {
			if err != nil {
				lastErr = err
				continue
			}
			ids = append(ids, id)
		}
		assert.Equal(t, []string{"host-0", "host-1"}, ids)
		require.Error(t, lastErr)
		assert.Equal(t, rserrors.ErrCodeStorageList, rserrors.CodeOf(lastErr))
	})
}

func TestClientRecordsMetrics(t *testing.T) {
	ctx := context.Background()
	collector, err := metrics.NewCollector(nil)
	require.NoError(t, err)

	client, _ := newTestClient(t, WithMetrics(collector, "analysis"))
	require.NoError(t, client.StoreDocument(ctx, testDocument("h"), "h"))
	_, err = client.RetrieveDocument(ctx, "missing")
	require.Error(t, err)

	snapshot := collector.GetMetrics()
	assert.Equal(t, int64(1), snapshot["StoreDocument"].Count)
	assert.Greater(t, snapshot["StoreDocument"].TotalSize, int64(0))
	assert.Equal(t, int64(1), snapshot["RetrieveDocument"].Errors)
	assert.Equal(t, int64(1), snapshot["Connect"].Count)
}

func TestConfig_Merge(t *testing.T) {
	defaults := FromStorageConfig(config.StorageConfig{
		Host:      "http://ceph:8080",
		KeyID:     "env-key",
		SecretKey: "env-secret",
		Bucket:    "env-bucket",
		Region:    "us-east-1",
		PageSize:  1000,
	})

	merged := Config{Bucket: "explicit"}.Merge(defaults)
	assert.Equal(t, "explicit", merged.Bucket)
	assert.Equal(t, "http://ceph:8080", merged.Host)
	assert.Equal(t, "env-key", merged.KeyID)
	assert.Equal(t, int32(1000), merged.PageSize)

	merged = Config{KeyID: "mine", SecretKey: "mine-secret"}.Merge(defaults)
	assert.Equal(t, "mine", merged.KeyID)
	assert.Equal(t, "mine-secret", merged.SecretKey)
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.True(t, cfg.ForcePathStyle)
	assert.Equal(t, int32(1000), cfg.PageSize)
	assert.False(t, cfg.EnableCargoShipOptimization)
}
