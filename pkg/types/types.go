package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Well-known document keys.
const (
	MetadataKey = "metadata"
	HostnameKey = "hostname"
)

// Document is one analysis result. Values must be JSON-compatible.
type Document map[string]any

// Metadata returns the metadata section, or false if it is absent or not an object.
func (d Document) Metadata() (map[string]any, bool) {
	raw, ok := d[MetadataKey]
	if !ok {
		return nil, false
	}
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	default:
		return nil, false
	}
}

// Hostname returns metadata.hostname. It fails when either key is missing
// or the hostname is not a string.
func (d Document) Hostname() (string, error) {
	meta, ok := d.Metadata()
	if !ok {
		return "", fmt.Errorf("document has no %q section", MetadataKey)
	}
	raw, ok := meta[HostnameKey]
	if !ok {
		return "", fmt.Errorf("document has no %s.%s field", MetadataKey, HostnameKey)
	}
	host, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s.%s is %T, not a string", MetadataKey, HostnameKey, raw)
	}
	return host, nil
}

// Decode parses a single JSON document. Numbers are kept as json.Number so
// integers beyond 2^53 survive a store/retrieve cycle unchanged.
func Decode(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after document")
	}
	return doc, nil
}

// Normalize round-trips the document through JSON so that it has the same
// shape a decoded document would have (json.Number numbers, map[string]any objects).
func (d Document) Normalize() (Document, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
