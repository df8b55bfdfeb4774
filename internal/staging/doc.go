// Package staging implements Blob Staging (spec.md §2.1): durable storage
// of the raw uploaded file between submission and worker pickup.
//
// LocalStore is grounded on the submitter's own upload directory handling in
// the teacher's internal/worker/list_upload.go ProcessDirectUpload (write to
// a temp path under an upload dir, keep it until processing finishes).
// S3Store is grounded on internal/agent/s3_storage.go's client construction
// (config.LoadDefaultConfig, HeadBucket probe) generalized from the
// teacher's single knowledge-base blob to one object per job id.
package staging
