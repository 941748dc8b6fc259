package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/config"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"
	"copro-smart-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskRecorder struct {
	err   error
	tasks []tasks.IngestionTask
}

func (r *taskRecorder) Process(_ context.Context, task tasks.IngestionTask) error {
	r.tasks = append(r.tasks, task)
	return r.err
}

func (r *taskRecorder) Publish(_ context.Context, task tasks.IngestionTask) error {
	r.tasks = append(r.tasks, task)
	return r.err
}

func pdfAttachment(name string) *Attachment {
	return &Attachment{Name: name, Size: 8, ContentType: "application/pdf", Reader: strings.NewReader("%PDF-1.4")}
}

func TestUploadValidation(t *testing.T) {
	svc := NewUploadService(newMemStorage(), repository.NewMetadataRepository(newTestDB(t)), &taskRecorder{}, nil, config.UploadConfig{MaxSizeMB: 1})
	ctx := context.Background()

	cases := map[string]UploadRequest{
		"no file":     {},
		"bad folder":  {File: pdfAttachment("a.pdf"), Folder: "secret"},
		"empty file":  {File: &Attachment{Name: "a.pdf", Reader: strings.NewReader("")}},
		"too large":   {File: &Attachment{Name: "a.pdf", Size: 2 << 20, Reader: strings.NewReader("x")}},
		"wrong type":  {File: &Attachment{Name: "a.exe", Size: 1, ContentType: "application/x-msdownload", Reader: strings.NewReader("x")}},
		"broken meta": {File: pdfAttachment("a.pdf"), Metadata: "{not json"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Upload(ctx, req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestUploadStoreOnly(t *testing.T) {
	store := newMemStorage()
	metaRepo := repository.NewMetadataRepository(newTestDB(t))
	proc := &taskRecorder{}
	svc := NewUploadService(store, metaRepo, proc, nil, config.UploadConfig{})

	res, err := svc.Upload(context.Background(), UploadRequest{
		File: pdfAttachment("Règlement Intérieur.PDF"), Folder: "legal", Metadata: `{"type":"reglement"}`, UserID: "u-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/legal/"+res.DocID+"-Reglement-Interieur.pdf", res.FileURL)
	assert.Equal(t, model.StatusStored, res.Status)
	assert.True(t, store.has("legal/"+res.DocID+"-Reglement-Interieur.pdf"))
	assert.Empty(t, proc.tasks)

	meta, err := metaRepo.FindByDocID(context.Background(), res.DocID)
	require.NoError(t, err)
	assert.Equal(t, "reglement", meta.Type)
	assert.Equal(t, "u-1", meta.UserID)
}

func TestUploadProcessSync(t *testing.T) {
	proc := &taskRecorder{}
	svc := NewUploadService(newMemStorage(), repository.NewMetadataRepository(newTestDB(t)), proc, nil, config.UploadConfig{})

	res, err := svc.Upload(context.Background(), UploadRequest{File: pdfAttachment("pv.pdf"), Process: true, UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusIndexed, res.Status)
	require.Len(t, proc.tasks, 1)
	assert.Equal(t, res.DocID, proc.tasks[0].DocID)
	assert.Equal(t, "document/"+res.DocID+"-pv.pdf", proc.tasks[0].ObjectKey)
}

func TestUploadProcessSyncFailure(t *testing.T) {
	proc := &taskRecorder{err: errors.New("tika down")}
	svc := NewUploadService(newMemStorage(), repository.NewMetadataRepository(newTestDB(t)), proc, nil, config.UploadConfig{})

	_, err := svc.Upload(context.Background(), UploadRequest{File: pdfAttachment("pv.pdf"), Process: true})
	assert.ErrorIs(t, err, apperr.ErrUpstream)

	proc.err = apperr.Validation("document contains no text")
	_, err = svc.Upload(context.Background(), UploadRequest{File: pdfAttachment("pv2.pdf"), Process: true})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUploadProcessKafka(t *testing.T) {
	proc, pub := &taskRecorder{}, &taskRecorder{}
	svc := NewUploadService(newMemStorage(), repository.NewMetadataRepository(newTestDB(t)), proc, pub, config.UploadConfig{IngestionMode: IngestionKafka})

	res, err := svc.Upload(context.Background(), UploadRequest{File: pdfAttachment("pv.pdf"), Process: true})
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, res.Status)
	assert.Len(t, pub.tasks, 1)
	assert.Empty(t, proc.tasks)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", contentTypeFor("a.PDF"))
	assert.Equal(t, "text/plain; charset=utf-8", contentTypeFor("notes.txt"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("archive.zip"))
}
