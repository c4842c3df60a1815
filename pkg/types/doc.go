/*
Package types defines the data structures shared across resultstore.

A Document is one analysis result as a loosely typed tree: a mapping of string
keys to JSON-compatible values (nested maps, slices, strings, numbers, booleans
and nil). Decode keeps numbers as json.Number so large integers are not rounded
through float64. Its shape is enforced by the schema package, not by Go types,
because the result schema is versioned independently of this module.

Every document carries a metadata section with a hostname; the hostname is the
document id inside a namespace:

	doc := types.Document{
		"metadata": map[string]any{
			"hostname": "thoth-analyzer-4cd8a",
			"analyzer": "thoth-package-extract",
		},
		"result": map[string]any{},
	}
	host, err := doc.Hostname()
*/
package types
