// Package publish uploads finished stems to S3-compatible object storage
// through minio-go. Uploads are opt-in; a no-op publisher is returned when the
// [upload] section is disabled.
package publish
