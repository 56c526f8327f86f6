package minio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/track"
	"github.com/minio/minio-go/v7"
)

const contentTypeJSON = "application/json"

// Archive keeps the latest validated document of every track as
// {prefix}/{isrc}.json. Writes overwrite, so archiving is idempotent per ISRC.
type Archive struct {
	client *MinioClient
}

// NewArchive returns an archive in the client's bucket.
func NewArchive(client *MinioClient) *Archive {
	return &Archive{client: client}
}

// ObjectKey returns the key of a document.
func (a *Archive) ObjectKey(isrc string) string {
	return path.Join(a.client.cfg.prefix(), isrc+".json")
}

// Put writes doc to the archive.
func (a *Archive) Put(ctx context.Context, doc *track.TrackDocument) error {
	start := time.Now()
	key := a.ObjectKey(doc.ISRC)

	buf := a.client.bufferPool.Get()
	defer a.client.bufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(doc); err != nil {
		return fmt.Errorf("minio: encode %s: %w", doc.ISRC, err)
	}
	size := int64(buf.Len())

	c := a.client.client.Load()
	if c == nil {
		return ErrConnectionFailed
	}
	_, err := c.PutObject(ctx, a.client.cfg.Connection.BucketName, key, buf, size, minio.PutObjectOptions{
		ContentType: contentTypeJSON,
	})
	a.client.observeOperation("put", "", key, time.Since(start), err, size, nil)
	if err != nil {
		return fmt.Errorf("minio: put %s: %w", key, err)
	}
	return nil
}

// Get reads the archived document of isrc, ErrObjectNotFound if there is none.
func (a *Archive) Get(ctx context.Context, isrc string) (*track.TrackDocument, error) {
	return a.get(ctx, a.ObjectKey(isrc))
}

func (a *Archive) get(ctx context.Context, key string) (*track.TrackDocument, error) {
	start := time.Now()
	c := a.client.client.Load()
	if c == nil {
		return nil, ErrConnectionFailed
	}

	obj, err := c.GetObject(ctx, a.client.cfg.Connection.BucketName, key, minio.GetObjectOptions{})
	if err != nil {
		a.client.observeOperation("get", "", key, time.Since(start), err, 0, nil)
		return nil, translateError(err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on the first read.
	data, err := io.ReadAll(obj)
	a.client.observeOperation("get", "", key, time.Since(start), err, int64(len(data)), nil)
	if err != nil {
		return nil, translateError(err)
	}

	var doc track.TrackDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("minio: decode %s: %w", key, err)
	}
	return &doc, nil
}

// Walk calls fn for every archived document, in key order. It stops at the first
// error from fn or from the store.
func (a *Archive) Walk(ctx context.Context, fn func(*track.TrackDocument) error) error {
	c := a.client.client.Load()
	if c == nil {
		return ErrConnectionFailed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := c.ListObjects(ctx, a.client.cfg.Connection.BucketName, minio.ListObjectsOptions{
		Prefix:    a.client.cfg.prefix() + "/",
		Recursive: true,
	})
	for info := range objects {
		if info.Err != nil {
			return fmt.Errorf("minio: list: %w", info.Err)
		}
		if !strings.HasSuffix(info.Key, ".json") {
			continue
		}
		doc, err := a.get(ctx, info.Key)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Delete removes the archived document of isrc.
func (a *Archive) Delete(ctx context.Context, isrc string) error {
	start := time.Now()
	key := a.ObjectKey(isrc)
	c := a.client.client.Load()
	if c == nil {
		return ErrConnectionFailed
	}
	err := c.RemoveObject(ctx, a.client.cfg.Connection.BucketName, key, minio.RemoveObjectOptions{})
	a.client.observeOperation("delete", "", key, time.Since(start), err, 0, nil)
	return err
}
