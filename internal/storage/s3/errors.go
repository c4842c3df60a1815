package s3

import (
	"errors"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	rserrors "github.com/thoth-station/resultstore/pkg/errors"
)

// translateError maps S3 failures onto the error taxonomy. Not-found
// conditions get their own codes; anything else keeps the SDK error as cause.
func (c *Client) translateError(err error, operation, key string, fallback rserrors.ErrorCode) error {
	var e *rserrors.ResultStoreError
	switch {
	case isNotFound(err):
		e = rserrors.Wrap(rserrors.ErrCodeObjectNotFound, "document not found: "+key, err)
	case isNoSuchBucket(err):
		e = rserrors.Wrap(rserrors.ErrCodeBucketNotFound, "bucket not found: "+c.cfg.Bucket, err)
	default:
		e = rserrors.Wrap(fallback, operation+" failed for "+key, err)
	}
	return e.WithComponent(componentName).
		WithOperation(operation).
		WithContext("bucket", c.cfg.Bucket).
		WithContext("key", key)
}

func isNotFound(err error) bool {
	if isErrorType[*s3types.NoSuchKey](err) || isErrorType[*s3types.NotFound](err) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func isNoSuchBucket(err error) bool {
	if isErrorType[*s3types.NoSuchBucket](err) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket"
}

// isErrorType checks if an error is of a specific type
func isErrorType[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}
