package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docstack/knowledge-backend/internal/chunker"
	"github.com/docstack/knowledge-backend/internal/config"
	"github.com/docstack/knowledge-backend/internal/entity"
	"github.com/docstack/knowledge-backend/internal/extractor"
	"github.com/docstack/knowledge-backend/internal/pkg/validator"
	"github.com/docstack/knowledge-backend/internal/repository"
)

type fakeDocRepo struct {
	docs    map[string]*entity.Document
	deleted []string
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: map[string]*entity.Document{}}
}

func (r *fakeDocRepo) Create(_ context.Context, _ repository.DBTX, doc entity.Document) (*entity.Document, error) {
	r.docs[doc.ID] = &doc
	return &doc, nil
}

func (r *fakeDocRepo) Get(_ context.Context, id string) (*entity.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, entity.ErrDocumentNotFound
	}
	return doc, nil
}

func (r *fakeDocRepo) List(_ context.Context, _ entity.ListDocumentsRequest) ([]*entity.Document, error) {
	var out []*entity.Document
	for _, doc := range r.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (r *fakeDocRepo) ListByStatus(_ context.Context, status entity.DocumentStatus) ([]*entity.Document, error) {
	var out []*entity.Document
	for _, doc := range r.docs {
		if doc.Status == status {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *fakeDocRepo) UpdateStoragePath(_ context.Context, _ repository.DBTX, id, storagePath string) error {
	doc, ok := r.docs[id]
	if !ok {
		return entity.ErrDocumentNotFound
	}
	doc.StoragePath = storagePath
	return nil
}

func (r *fakeDocRepo) UpdateStatus(_ context.Context, id string, status entity.DocumentStatus) error {
	doc, ok := r.docs[id]
	if !ok {
		return entity.ErrDocumentNotFound
	}
	doc.Status = status
	return nil
}

func (r *fakeDocRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.docs[id]; !ok {
		return entity.ErrDocumentNotFound
	}
	delete(r.docs, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type fakeCategoryRepo struct{ exists bool }

func (r *fakeCategoryRepo) Exists(_ context.Context, _ string) (bool, error) { return r.exists, nil }

func (r *fakeCategoryRepo) Stats(_ context.Context, id string) (*entity.CategoryStats, error) {
	return &entity.CategoryStats{CategoryID: id, DocumentCount: 1}, nil
}

type fakeUserRepo struct{ exists bool }

func (r *fakeUserRepo) Exists(_ context.Context, _ string) (bool, error) { return r.exists, nil }

type fakeStepRepo struct{ steps []*entity.IngestionStep }

func (r *fakeStepRepo) Record(_ context.Context, documentID, step, status, detail string) error {
	r.steps = append(r.steps, &entity.IngestionStep{
		DocumentID: documentID,
		Step:       step,
		Status:     status,
		Detail:     detail,
	})
	return nil
}

func (r *fakeStepRepo) ListByDocument(_ context.Context, documentID string) ([]*entity.IngestionStep, error) {
	var out []*entity.IngestionStep
	for _, s := range r.steps {
		if s.DocumentID == documentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeStepRepo) stepStatus(step string) (string, bool) {
	for _, s := range r.steps {
		if s.Step == step {
			return s.Status, true
		}
	}
	return "", false
}

type fakeBlobStore struct {
	written  map[string][]byte
	deleted  []string
	writeErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{written: map[string][]byte{}}
}

func (s *fakeBlobStore) Write(_ context.Context, documentID, ext string, content []byte) (string, error) {
	if s.writeErr != nil {
		return "", s.writeErr
	}
	s.written[documentID+ext] = content
	return "/blobs/" + documentID + ext, nil
}

func (s *fakeBlobStore) Delete(_ context.Context, documentID, ext string) error {
	s.deleted = append(s.deleted, documentID+ext)
	return nil
}

type fakeEmbedder struct {
	calls  int
	failOn string
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("embedding provider unavailable")
	}
	return []float32{1, 0, 0}, nil
}

type fakeIndex struct {
	upserts   map[string][]entity.EmbeddedChunk
	upsertErr error
	present   map[string]bool
	deleted   []string
	deleteOK  bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		upserts:  map[string][]entity.EmbeddedChunk{},
		present:  map[string]bool{},
		deleteOK: true,
	}
}

func (i *fakeIndex) Upsert(_ context.Context, documentID, _, _ string, chunks []entity.EmbeddedChunk) error {
	if i.upsertErr != nil {
		return i.upsertErr
	}
	i.upserts[documentID] = chunks
	i.present[documentID] = true
	return nil
}

func (i *fakeIndex) Delete(_ context.Context, documentID string) bool {
	i.deleted = append(i.deleted, documentID)
	delete(i.present, documentID)
	return i.deleteOK
}

func (i *fakeIndex) Exists(_ context.Context, documentID string) bool {
	return i.present[documentID]
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

type fixture struct {
	uc    *Usecase
	docs  *fakeDocRepo
	steps *fakeStepRepo
	blobs *fakeBlobStore
	embed *fakeEmbedder
	index *fakeIndex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		docs:  newFakeDocRepo(),
		steps: &fakeStepRepo{},
		blobs: newFakeBlobStore(),
		embed: &fakeEmbedder{},
		index: newFakeIndex(),
	}
	f.uc = NewUsecase(
		f.docs,
		&fakeCategoryRepo{exists: true},
		&fakeUserRepo{exists: true},
		f.steps,
		validator.NewUploadValidator(config.FileUploadConfig{MaxFileSize: 1 << 20}),
		f.blobs,
		extractor.NewRegistry(),
		chunker.New(config.ChunkingConfig{MaxSize: 90, MinSize: 10}),
		f.embed,
		f.index,
		fakeTxRunner{},
		0,
		zap.NewNop(),
	)
	return f
}

func uploadRequest(content string) *entity.UploadDocumentRequest {
	return &entity.UploadDocumentRequest{
		Title:      "Expense Policy",
		CategoryID: uuid.New().String(),
		Version:    "1.0",
		UploadedBy: uuid.New().String(),
		Filename:   "policy.txt",
		Content:    []byte(content),
	}
}

// Two pages of a .txt upload (form feed separates pages): three sentences on
// page one, one on page two, each its own chunk at maxSize 90.
const twoPageText = "Expenses must be filed within thirty days of purchase. " +
	"Receipts are required for every single claim. " +
	"Manager approval is mandatory above one hundred euros." +
	"\f" +
	"International travel requires prior written approval."

func TestUpload_IndexesAllChunks(t *testing.T) {
	f := newFixture(t)

	resp, err := f.uc.Upload(context.Background(), uploadRequest(twoPageText))
	require.NoError(t, err)

	assert.Equal(t, 4, resp.ChunksTotal)
	assert.Equal(t, 4, resp.ChunksIndexed)
	require.NotNil(t, resp.Document)
	assert.Equal(t, entity.DocumentStatusActive, resp.Document.Status)
	assert.Contains(t, resp.Document.StoragePath, resp.Document.ID)

	chunks := f.index.upserts[resp.Document.ID]
	require.Len(t, chunks, 4)
	assert.Equal(t, 1, chunks[0].SourcePage)
	assert.Equal(t, 2, chunks[3].SourcePage)
	assert.Equal(t, 3, chunks[3].SequenceNo)

	status, ok := f.steps.stepStatus(entity.StepCommitted)
	require.True(t, ok)
	assert.Equal(t, entity.StepStatusOK, status)
}

func TestUpload_SkipsChunkWhoseEmbeddingFails(t *testing.T) {
	f := newFixture(t)
	f.embed.failOn = "Receipts"

	resp, err := f.uc.Upload(context.Background(), uploadRequest(twoPageText))
	require.NoError(t, err)

	assert.Equal(t, 4, resp.ChunksTotal)
	assert.Equal(t, 3, resp.ChunksIndexed)
	assert.Len(t, f.index.upserts[resp.Document.ID], 3)

	// The surviving chunks keep their original sequence numbers.
	var seqs []int
	for _, c := range f.index.upserts[resp.Document.ID] {
		seqs = append(seqs, c.SequenceNo)
	}
	assert.Equal(t, []int{0, 2, 3}, seqs)
}

func TestUpload_NoChunksSkipsIndexing(t *testing.T) {
	f := newFixture(t)

	resp, err := f.uc.Upload(context.Background(), uploadRequest("Short."))
	require.NoError(t, err)

	assert.Equal(t, 0, resp.ChunksTotal)
	assert.Equal(t, 0, resp.ChunksIndexed)
	assert.Empty(t, f.index.upserts)
	assert.Zero(t, f.embed.calls)
}

func TestUpload_RejectsUnsupportedExtension(t *testing.T) {
	f := newFixture(t)

	req := uploadRequest(twoPageText)
	req.Filename = "policy.docx"

	_, err := f.uc.Upload(context.Background(), req)
	require.ErrorIs(t, err, entity.ErrInvalidExtension)

	assert.Empty(t, f.docs.docs)
	assert.Empty(t, f.blobs.written)
	assert.Empty(t, f.steps.steps)
}

func TestUpload_UnknownCategory(t *testing.T) {
	f := newFixture(t)
	f.uc.categories = &fakeCategoryRepo{exists: false}

	_, err := f.uc.Upload(context.Background(), uploadRequest(twoPageText))
	require.ErrorIs(t, err, entity.ErrCategoryNotFound)
	assert.Empty(t, f.docs.docs)
}

func TestUpload_IndexFailureRecordedInTrail(t *testing.T) {
	f := newFixture(t)
	f.index.upsertErr = errors.New("qdrant down")

	_, err := f.uc.Upload(context.Background(), uploadRequest(twoPageText))
	require.Error(t, err)

	status, ok := f.steps.stepStatus(entity.StepIndexing)
	require.True(t, ok)
	assert.Equal(t, entity.StepStatusFailed, status)

	_, committed := f.steps.stepStatus(entity.StepCommitted)
	assert.False(t, committed)
}

func TestDeleteDocument_RemovesAllStores(t *testing.T) {
	f := newFixture(t)

	resp, err := f.uc.Upload(context.Background(), uploadRequest(twoPageText))
	require.NoError(t, err)
	id := resp.Document.ID

	require.NoError(t, f.uc.DeleteDocument(context.Background(), id))

	assert.Equal(t, []string{id}, f.index.deleted)
	assert.Equal(t, []string{id + ".txt"}, f.blobs.deleted)
	_, err = f.uc.GetDocument(context.Background(), id)
	assert.ErrorIs(t, err, entity.ErrDocumentNotFound)
}

func TestDeleteDocument_ProceedsWhenIndexDeleteUnacknowledged(t *testing.T) {
	f := newFixture(t)

	resp, err := f.uc.Upload(context.Background(), uploadRequest(twoPageText))
	require.NoError(t, err)
	f.index.deleteOK = false

	require.NoError(t, f.uc.DeleteDocument(context.Background(), resp.Document.ID))
	assert.Empty(t, f.docs.docs)
}

func TestDeleteDocument_InvalidID(t *testing.T) {
	f := newFixture(t)

	err := f.uc.DeleteDocument(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)
}

func TestReconcile_MarksUnindexedDocumentsInReview(t *testing.T) {
	f := newFixture(t)

	indexed, err := f.uc.Upload(context.Background(), uploadRequest(twoPageText))
	require.NoError(t, err)

	orphan, err := f.uc.Upload(context.Background(), uploadRequest(twoPageText))
	require.NoError(t, err)
	delete(f.index.present, orphan.Document.ID)

	report, err := f.uc.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, []string{orphan.Document.ID}, report.Degraded)

	doc, err := f.uc.GetDocument(context.Background(), orphan.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusInReview, doc.Status)

	doc, err = f.uc.GetDocument(context.Background(), indexed.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusActive, doc.Status)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)

	resp, err := f.uc.Upload(context.Background(), uploadRequest(twoPageText))
	require.NoError(t, err)

	doc, err := f.uc.UpdateStatus(context.Background(), resp.Document.ID, entity.DocumentStatusObsolete)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusObsolete, doc.Status)

	_, err = f.uc.UpdateStatus(context.Background(), resp.Document.ID, entity.DocumentStatus("ARCHIVED"))
	assert.Error(t, err)
}

func TestSteps_ReturnsTrailInOrder(t *testing.T) {
	f := newFixture(t)

	resp, err := f.uc.Upload(context.Background(), uploadRequest(twoPageText))
	require.NoError(t, err)

	trail, err := f.uc.Steps(context.Background(), resp.Document.ID)
	require.NoError(t, err)
	require.NotEmpty(t, trail)
	assert.Equal(t, entity.StepValidating, trail[0].Step)
	assert.Equal(t, entity.StepCommitted, trail[len(trail)-1].Step)
}
