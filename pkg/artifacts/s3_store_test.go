package artifacts

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	headErr error
	putErr  error
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_StatAndPut(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{}}
	store := NewS3StoreWithClient(client, "asf-mission-data-tool", "")
	ctx := context.Background()

	_, err := store.Stat(ctx, "bronze/x/f.csv")
	require.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, store.Put(ctx, "bronze/x/f.csv", []byte("12345"), "text/csv"))
	info, err := store.Stat(ctx, "bronze/x/f.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)

	assert.Equal(t, "s3://asf-mission-data-tool/bronze/x/f.csv", store.URI("bronze/x/f.csv"))
}

func TestS3Store_Prefix(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{}}
	store := NewS3StoreWithClient(client, "b", "archive/")
	require.NoError(t, store.Put(context.Background(), "bronze/x/f.csv", []byte("1"), ""))
	_, ok := client.objects["b/archive/bronze/x/f.csv"]
	assert.True(t, ok)
	assert.Equal(t, "s3://b/archive/bronze/x/f.csv", store.URI("bronze/x/f.csv"))
}

func TestS3Store_Errors(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{}, headErr: errors.New("access denied"), putErr: errors.New("no credentials")}
	store := NewS3StoreWithClient(client, "b", "")
	ctx := context.Background()

	_, err := store.Stat(ctx, "k")
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "head", storageErr.Op)

	err = store.Put(ctx, "k", []byte("v"), "")
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "put", storageErr.Op)
}

func TestIsS3NotFound(t *testing.T) {
	assert.True(t, isS3NotFound(&types.NotFound{}))
	assert.True(t, isS3NotFound(&types.NoSuchKey{}))
	assert.False(t, isS3NotFound(errors.New("boom")))
}
