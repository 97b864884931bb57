package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lendingdesk/internal/config"
	"github.com/mrlokans/lendingdesk/internal/storage"
)

type fakeAPI struct {
	puts    map[string]string
	ctypes  map[string]string
	deleted []string
	pages   [][]types.Object
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{puts: map[string]string{}, ctypes: map[string]string{}}
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts[aws.ToString(in.Key)] = string(body)
	f.ctypes[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.puts[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	page := 0
	if in.ContinuationToken != nil {
		page = 1
	}
	out := &s3.ListObjectsV2Output{Contents: f.pages[page]}
	if page+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String("next")
	}
	return out, nil
}

func TestUploadAndDownload(t *testing.T) {
	api := newFakeAPI()
	client := NewWithAPI(api, "library")
	ctx := context.Background()

	require.NoError(t, client.Upload(ctx, "reports/summary.json", strings.NewReader(`{"ok":true}`), "application/json"))
	assert.Equal(t, `{"ok":true}`, api.puts["reports/summary.json"])
	assert.Equal(t, "application/json", api.ctypes["reports/summary.json"])

	body, err := client.Download(ctx, "reports/summary.json")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	_, err = client.Download(ctx, "missing.json")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	require.NoError(t, client.Delete(ctx, "reports/summary.json"))
	assert.Equal(t, []string{"reports/summary.json"}, api.deleted)
}

func TestListFollowsPages(t *testing.T) {
	modified := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	api := newFakeAPI()
	api.pages = [][]types.Object{
		{{Key: aws.String("reports/1.json"), Size: aws.Int64(10), LastModified: aws.Time(modified)}},
		{{Key: aws.String("reports/2.json"), Size: aws.Int64(20), LastModified: aws.Time(modified.Add(time.Hour))}},
	}

	files, err := NewWithAPI(api, "library").List(context.Background(), "reports/")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "reports/2.json", files[1].Key)
	assert.EqualValues(t, 20, files[1].Size)
	assert.Equal(t, "reports/2.json", storage.FindLatest(files).Key)
}

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(context.Background(), config.Archive{Region: "eu-west-1"})
	assert.Error(t, err)
}
