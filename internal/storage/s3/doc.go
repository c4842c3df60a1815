/*
Package s3 stores JSON result documents in an S3-compatible object store.

A Client is bound to one key prefix of one bucket. Every document lives at
"<prefix>/<id>", where the id holds no "/", and listing only ever returns ids
directly under that prefix, so clients bound to different prefixes never see
each other's documents even when they share a bucket or one prefix is nested
inside the other.

# Architecture Overview

	┌─────────────────────────────────────────────┐
	│            result.Adapter                   │
	│   (validation, document ids, namespaces)    │
	└─────────────────────────────────────────────┘
	                    │
	┌─────────────────────────────────────────────┐
	│               s3.Client                     │
	│  JSON encode/decode, key layout, listing,   │
	│  error translation, operation metrics       │
	└─────────────────────────────────────────────┘
	          │                       │
	┌──────────────────┐   ┌──────────────────────┐
	│ CargoShip        │   │ aws-sdk-go-v2 S3 API │
	│ Transporter      │──▶│ (or injected API)    │
	│ (optional upload)│   └──────────────────────┘
	└──────────────────┘

# Connecting

NewClient performs no I/O. Connect resolves credentials through the AWS SDK
default chain (overridden by explicit key id and secret), points the SDK at
Host when one is configured and probes the bucket with HeadBucket:

	client, err := s3.NewClient("data/stage/analysis", s3.Config{
		Host:   "https://s3.upshift.example.com",
		Bucket: "thoth",
	})
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}

Data operations on a client that has not connected fail with
NOT_INITIALIZED.

# Listing

DocumentListing is a lazy iter.Seq2 backed by ListObjectsV2 pagination with
a "/" delimiter. Pages are requested only as the caller consumes ids:

	for id, err := range client.DocumentListing(ctx) {
		if err != nil {
			return err
		}
		fmt.Println(id)
	}

Retrieved documents keep their numbers as json.Number, so integers beyond
2^53 read back exactly.

# Errors

SDK failures are translated into *errors.ResultStoreError values. Missing
objects map to OBJECT_NOT_FOUND, missing buckets to BUCKET_NOT_FOUND and
everything else to the operation's storage code with the SDK error kept as
the cause.

# Testing

Package s3test provides MemoryAPI, an in-memory implementation of the API
interface that can be injected with WithAPI.
*/
package s3
