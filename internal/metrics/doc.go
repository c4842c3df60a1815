/*
Package metrics exposes Prometheus metrics for result storage operations.

Each Collector owns its own registry, so several collectors (for example one
per test) never clash on registration. Recorded series:

	resultstore_operations_total{operation,result_type,status}
	resultstore_operation_duration_seconds{operation,result_type}
	resultstore_document_size_bytes{operation,result_type}
	resultstore_errors_total{operation,result_type,code}

The storage client records one observation per remote call. A disabled
collector, or a nil *Collector, accepts every call and records nothing.
*/
package metrics
