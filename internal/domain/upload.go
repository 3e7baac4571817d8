package domain

import "time"

// UploadStatus tracks what the external cleaning stage has done with an upload.
// This service only ever writes UploadStatusUploaded.
type UploadStatus string

const (
	UploadStatusUploaded UploadStatus = "uploaded"
	UploadStatusCleaned  UploadStatus = "cleaned"
	UploadStatusFailed   UploadStatus = "failed"
)

// Upload stores metadata about a file the user put into object storage
// through a presigned URL. The bytes live in the bucket, never here.
type Upload struct {
	ID         string       `bson:"_id" json:"id"`
	AccountID  string       `bson:"accountId" json:"accountId"`
	BucketName string       `bson:"bucketName" json:"bucketName"`
	ObjectKey  string       `bson:"objectKey" json:"key"`      // raw upload key, uploads/...
	CleanKey   string       `bson:"cleanKey" json:"cleanKey"`  // derived text key, cleaned/....txt
	Status     UploadStatus `bson:"status" json:"status"`
	Size       *int64       `bson:"size,omitempty" json:"size,omitempty"` // client-reported hint
	ETag       string       `bson:"etag,omitempty" json:"etag,omitempty"` // client-reported hint
	CreatedAt  time.Time    `bson:"createdAt" json:"createdAt"`
}
