/*
Package result is the entry point for storing and reading analysis results.

An Adapter is bound to one result type ("analysis", "solver", ...) of one
deployment. Its documents live under the namespace prefix

	<root prefix>/<deployment name>/<result type>

and each document is keyed by its metadata.hostname, so storing a newer
result for the same host replaces the older one.

Every document passes schema validation before it is written; a rejected
document never reaches the store.

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	store, err := result.NewAnalysisResultsStore(cfg, result.WithBucket("thoth"))
	if err != nil {
		return err
	}
	if err := store.Connect(ctx); err != nil {
		return err
	}
	id, err := store.StoreDocument(ctx, doc)

Listing and iteration are lazy iter.Seq2 sequences; IterateResults stops
at the first error after yielding it.
*/
package result
