package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"bookchat/internal/app/chat"
)

type fakeUploader struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, input)
	f.bodies = append(f.bodies, body)
	return &manager.UploadOutput{}, nil
}

func testMessage() chat.Message {
	return chat.NewTextMessage("m-1", "booking-7", "hello", "u1", "Alice",
		time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC))
}

func TestObjectKey(t *testing.T) {
	require := require.New(t)

	msg := testMessage()
	require.Equal("bookings/booking-7/01714566600000000000-m-1.json", ObjectKey(msg))
}

func TestObjectKeyOrdersByCreation(t *testing.T) {
	require := require.New(t)

	early := testMessage()
	late := early
	late.ID = "a"
	late.CreatedAt = early.CreatedAt.Add(time.Millisecond)

	require.Less(ObjectKey(early), ObjectKey(late))
}

func TestArchiveSave(t *testing.T) {
	require := require.New(t)

	up := &fakeUploader{}
	archive := newArchive("chat-archive", up)

	require.NoError(archive.Save(context.Background(), testMessage()))
	require.Len(up.inputs, 1)

	input := up.inputs[0]
	require.Equal("chat-archive", *input.Bucket)
	require.Equal(ObjectKey(testMessage()), *input.Key)
	require.Equal("application/json", *input.ContentType)

	var stored map[string]any
	require.NoError(json.Unmarshal(up.bodies[0], &stored))
	require.Equal("booking-7", stored["bookingId"])
	require.Equal("m-1", stored["id"])
	require.Equal("hello", stored["content"])
	require.Equal("u1", stored["senderId"])
	require.Equal(map[string]any{"name": "Alice"}, stored["sender"])
	require.Equal("2024-05-01T12:30:00.000Z", stored["createdAt"])
	require.Equal("TEXT", stored["type"])
}

func TestArchiveSaveUploadError(t *testing.T) {
	require := require.New(t)

	archive := newArchive("chat-archive", &fakeUploader{err: errors.New("boom")})

	err := archive.Save(context.Background(), testMessage())
	require.Error(err)
	require.Contains(err.Error(), "boom")
}
