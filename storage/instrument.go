package storage

import (
	"context"
	"io"
	"time"

	"github.com/cppla/dealerintake/metrics"
)

type instrumented struct {
	next Provider
}

// Instrument records latency and outcome of every provider call.
func Instrument(p Provider) Provider {
	return &instrumented{next: p}
}

func observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.StorageOperationDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

func (i *instrumented) FindFolder(ctx context.Context, name, parentID string) (id string, found bool, err error) {
	defer func(start time.Time) { observe("find_folder", start, err) }(time.Now())
	return i.next.FindFolder(ctx, name, parentID)
}

func (i *instrumented) CreateFolder(ctx context.Context, name, parentID string) (id string, err error) {
	defer func(start time.Time) { observe("create_folder", start, err) }(time.Now())
	return i.next.CreateFolder(ctx, name, parentID)
}

func (i *instrumented) UploadFile(ctx context.Context, body io.Reader, name, mimeType, parentID string) (id string, err error) {
	defer func(start time.Time) { observe("upload_file", start, err) }(time.Now())
	return i.next.UploadFile(ctx, body, name, mimeType, parentID)
}
