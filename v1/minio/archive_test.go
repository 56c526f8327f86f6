package minio

import (
	"bytes"
	"errors"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	a := NewArchive(&MinioClient{cfg: Config{}})
	assert.Equal(t, "documents/USRC17607839.json", a.ObjectKey("USRC17607839"))

	a = NewArchive(&MinioClient{cfg: Config{Prefix: "tracks/v2"}})
	assert.Equal(t, "tracks/v2/USRC17607839.json", a.ObjectKey("USRC17607839"))
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, CategoryUnknown},
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}, CategoryNotFound},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}, CategoryPermission},
		{"slow down", minio.ErrorResponse{Code: "SlowDown", StatusCode: http.StatusServiceUnavailable}, CategoryTemporary},
		{"bad request", minio.ErrorResponse{Code: "InvalidArgument", StatusCode: http.StatusBadRequest}, CategoryPermanent},
		{"transport", errors.New("connection refused"), CategoryTemporary},
		{"sentinel", ErrObjectNotFound, CategoryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCategory(tt.err))
		})
	}
	assert.True(t, IsRetryableError(errors.New("connection reset")))
	assert.False(t, IsRetryableError(minio.ErrorResponse{Code: "AccessDenied"}))
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))
	assert.ErrorIs(t, translateError(minio.ErrorResponse{Code: "NoSuchKey"}), ErrObjectNotFound)

	other := minio.ErrorResponse{Code: "AccessDenied"}
	assert.NotErrorIs(t, translateError(other), ErrObjectNotFound)
}

func TestBufferPoolDiscardsOversized(t *testing.T) {
	bp := NewBufferPool(8, 64)

	buf := bp.Get()
	buf.WriteString("small")
	bp.Put(buf)

	big := bytes.NewBuffer(make([]byte, 0, 128))
	bp.Put(big)
	bp.Put(nil)

	stats := bp.GetStats()
	assert.Equal(t, int64(1), stats.TotalBuffersDiscarded)
	assert.GreaterOrEqual(t, stats.TotalBuffersCreated, int64(1))
	assert.Zero(t, bp.Get().Len())
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{Connection: ConnectionConfig{Endpoint: "localhost:9000"}}.Validate())
	assert.NoError(t, Config{Connection: ConnectionConfig{Endpoint: "localhost:9000", BucketName: "tracks"}}.Validate())
}
