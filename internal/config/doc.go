/*
Package config provides configuration for resultstore with multi-source support.

Sources are applied in increasing precedence:

	compiled-in defaults (NewDefault)
	        │
	YAML file (LoadFromFile)
	        │
	environment variables (LoadFromEnv, THOTH_*)
	        │
	explicit adapter options (result.With*)   ← highest

Environment variables:

	THOTH_DEPLOYMENT_NAME      deployment.name
	THOTH_CEPH_BUCKET_PREFIX   deployment.bucket_prefix
	THOTH_S3_ENDPOINT_URL      storage.host
	THOTH_CEPH_KEY_ID          storage.key_id
	THOTH_CEPH_SECRET_KEY      storage.secret_key
	THOTH_CEPH_BUCKET          storage.bucket
	THOTH_CEPH_REGION          storage.region
	THOTH_LOG_LEVEL            global.log_level
	THOTH_LOG_FORMAT           global.log_format
	THOTH_METRICS_ADDR         monitoring.metrics.addr

The environment is consulted only by LoadFromEnv. Adapters receive a resolved
*Configuration and never read process state during an operation.

Example file:

	global:
	  log_level: INFO
	  log_format: json
	deployment:
	  name: ocp-stage
	  bucket_prefix: data/thoth
	storage:
	  host: https://s3.example.com
	  bucket: thoth
	  region: us-east-1

Validate does not require deployment.name or deployment.bucket_prefix; a
missing namespace input is reported when an adapter is constructed.
*/
package config
