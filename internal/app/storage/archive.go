/*
Package storage archives chat messages as JSON objects in S3-compatible object storage.

Each message becomes one object under its booking's prefix, so a conversation can be
listed and replayed in order by key.
*/
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"bookchat/internal/app/chat"
	"bookchat/internal/configs"
)

const contentTypeJSON = "application/json"

// uploader is the part of *manager.Uploader the archive needs.
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Archive is a message store writing to an S3 bucket.
type Archive struct {
	bucket   string
	uploader uploader
}

// NewArchive builds an S3 client for the configured endpoint and returns the archive.
func NewArchive(ctx context.Context, cfg configs.S3Config) (*Archive, error) {
	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load S3 client configuration: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return newArchive(cfg.BucketName, manager.NewUploader(client)), nil
}

func newArchive(bucket string, up uploader) *Archive {
	return &Archive{bucket: bucket, uploader: up}
}

// archivedMessage is the stored object: the receive_message payload plus its booking.
type archivedMessage struct {
	BookingID chat.RoomID `json:"bookingId"`
	chat.ReceiveMessagePayload
}

// Save uploads msg as a JSON object.
func (a *Archive) Save(ctx context.Context, msg chat.Message) error {
	body, err := json.Marshal(archivedMessage{
		BookingID:             msg.RoomID,
		ReceiveMessagePayload: chat.NewReceiveMessagePayload(msg),
	})
	if err != nil {
		return fmt.Errorf("encode message %s: %w", msg.ID, err)
	}

	key := ObjectKey(msg)
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentTypeJSON),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	return nil
}

// ObjectKey returns the object key of msg: bookings/{bookingId}/{createdAt unix nanos}-{id}.json.
// The zero-padded timestamp keeps a booking's keys in creation order.
func ObjectKey(msg chat.Message) string {
	return fmt.Sprintf("bookings/%s/%020d-%s.json", msg.RoomID, msg.CreatedAt.UnixNano(), msg.ID)
}
