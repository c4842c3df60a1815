// Package namespace derives the storage key prefix that isolates one
// deployment's results of one type inside a shared bucket.
package namespace

import (
	"fmt"
	"strings"

	"github.com/thoth-station/resultstore/pkg/errors"
)

// Separator joins the namespace parts and a document id onto the prefix.
const Separator = "/"

// Parts are the inputs of a namespace prefix.
type Parts struct {
	Root       string
	Deployment string
	ResultType string
}

// Build joins root, deployment and result type into a prefix. All three
// must be non-empty; the deployment and result type must not contain the
// separator so that distinct triples never collide.
//
// The root may itself span several segments ("data/thoth"). Leading and
// trailing separators are trimmed, so "data/" and "data" name the same
// root; an empty inner segment ("data//thoth") is rejected.
func Build(root, deployment, resultType string) (string, error) {
	root = strings.Trim(root, Separator)
	if root == "" {
		return "", missing("root prefix")
	}
	if strings.Contains(root, Separator+Separator) {
		return "", errors.NewError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("root prefix %q has an empty segment", root)).
			WithComponent("namespace")
	}
	if deployment == "" {
		return "", missing("deployment name")
	}
	if resultType == "" {
		return "", missing("result type")
	}
	for name, part := range map[string]string{"deployment name": deployment, "result type": resultType} {
		if strings.Contains(part, Separator) {
			return "", errors.NewError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("%s %q must not contain %q", name, part, Separator)).
				WithComponent("namespace")
		}
	}
	return root + Separator + deployment + Separator + resultType, nil
}

// Resolve fills each empty part of explicit from defaults and builds the
// prefix. A part that stays empty is a configuration error.
func Resolve(explicit, defaults Parts) (string, error) {
	return Build(
		firstNonEmpty(explicit.Root, defaults.Root),
		firstNonEmpty(explicit.Deployment, defaults.Deployment),
		firstNonEmpty(explicit.ResultType, defaults.ResultType),
	)
}

// Key returns the object key of id inside prefix.
func Key(prefix, id string) string {
	return prefix + Separator + id
}

// ValidateID checks that id can name a document directly under a prefix:
// it must be non-empty and must not contain the separator.
func ValidateID(id string) error {
	if id == "" {
		return errors.NewError(errors.ErrCodeInvalidDocumentID, "document id is empty").
			WithComponent("namespace")
	}
	if strings.Contains(id, Separator) {
		return errors.NewError(errors.ErrCodeInvalidDocumentID,
			fmt.Sprintf("document id %q must not contain %q", id, Separator)).
			WithComponent("namespace")
	}
	return nil
}

// ID strips prefix and the separator from key. It reports false when key
// does not live directly under prefix.
func ID(prefix, key string) (string, bool) {
	id, ok := strings.CutPrefix(key, prefix+Separator)
	if !ok || ValidateID(id) != nil {
		return "", false
	}
	return id, true
}

func missing(name string) error {
	return errors.NewError(errors.ErrCodeMissingConfig, name+" is not set").
		WithComponent("namespace")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
