package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexrag/lexrag/ai/mock"
	"github.com/lexrag/lexrag/objectstore"
	"github.com/lexrag/lexrag/vectorstore"
	vsbadger "github.com/lexrag/lexrag/vectorstore/badger"
)

// textExtract reads the staged file as a single page, standing in for PDF
// parsing.
func textExtract(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []string{string(data)}, nil
}

// pagedExtract treats each line of the staged file as one page.
func pagedExtract(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(data), "\n"), nil
}

func writeCorpus(t *testing.T, files map[string]string) *objectstore.DirStore {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	store, err := objectstore.NewDirStore(dir)
	require.NoError(t, err)
	return store
}

func newVectorStore(t *testing.T) vectorstore.Store {
	t.Helper()
	store, err := vsbadger.NewInMemory("documentos_processados", mock.NewMockEmbedder())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewValidatesDependencies(t *testing.T) {
	vectors := newVectorStore(t)
	objects := writeCorpus(t, nil)

	_, err := New(nil, vectors)
	assert.ErrorIs(t, err, ErrObjectStoreRequired)
	_, err = New(objects, nil)
	assert.ErrorIs(t, err, ErrVectorStoreRequired)
}

func TestIngestAllIndexesEveryDocument(t *testing.T) {
	objects := writeCorpus(t, map[string]string{
		"cdc.txt":              strings.Repeat("Art. 6º São direitos básicos do consumidor. ", 60),
		"leis/inquilinato.txt": "Art. 1º A locação de imóvel urbano regula-se por esta lei.",
	})
	vectors := newVectorStore(t)

	p, err := New(objects, vectors, WithExtractor(textExtract))
	require.NoError(t, err)
	defer p.Release()

	report, err := p.IngestAll(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"cdc.txt", "leis/inquilinato.txt"}, report.Processed)
	assert.Empty(t, report.Failed)
	assert.Greater(t, report.TotalChunks, 1)
	assert.Greater(t, report.Elapsed.Nanoseconds(), int64(0))
}

func TestIngestAllStampsHeaderAndMetadata(t *testing.T) {
	objects := writeCorpus(t, map[string]string{
		"pareceres/parecer_01.txt": "Parecer sobre responsabilidade civil objetiva.",
	})
	vectors := newVectorStore(t)

	p, err := New(objects, vectors, WithExtractor(textExtract))
	require.NoError(t, err)
	defer p.Release()

	_, err = p.IngestAll(context.Background())
	require.NoError(t, err)

	chunks, err := vectors.SimilaritySearch(context.Background(), "responsabilidade civil", 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.True(t, strings.HasPrefix(chunks[0].Content, "Documento: pareceres/parecer_01.txt"))
	assert.Equal(t, "pareceres/parecer_01.txt", chunks[0].Metadata["source"])
	assert.Equal(t, "parecer_01.txt", chunks[0].Metadata["file_name"])
	assert.Equal(t, "pareceres/parecer_01.txt", chunks[0].Metadata["file_path"])
	assert.Contains(t, chunks[0].Metadata["origin_uri"], "pareceres/parecer_01.txt")
}

func TestIngestAllStampsHeaderOnEveryPage(t *testing.T) {
	objects := writeCorpus(t, map[string]string{
		"acordao.txt": "Ementa do acórdão sobre dano moral.\nVoto do relator sobre o quantum indenizatório.\nDispositivo final do julgamento.",
	})
	vectors := newVectorStore(t)

	p, err := New(objects, vectors, WithExtractor(pagedExtract))
	require.NoError(t, err)
	defer p.Release()

	report, err := p.IngestAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalChunks)

	chunks, err := vectors.SimilaritySearch(context.Background(), "dano moral", 10)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.True(t, strings.HasPrefix(chunk.Content, "Documento: acordao.txt"),
			"chunk without recoverable header: %q", chunk.Content)
	}
}

func TestIngestAllIsolatesFailures(t *testing.T) {
	objects := writeCorpus(t, map[string]string{
		"bom_1.txt":      "Texto íntegro número um.",
		"corrompido.txt": "este documento vai falhar",
		"bom_2.txt":      "Texto íntegro número dois.",
	})
	vectors := newVectorStore(t)

	failing := func(ctx context.Context, path string) ([]string, error) {
		text, err := textExtract(ctx, path)
		if err != nil {
			return nil, err
		}
		if strings.Contains(text[0], "vai falhar") {
			return nil, errors.New("pdf corrompido")
		}
		return text, nil
	}

	p, err := New(objects, vectors, WithExtractor(failing))
	require.NoError(t, err)
	defer p.Release()

	report, err := p.IngestAll(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"bom_1.txt", "bom_2.txt"}, report.Processed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "corrompido.txt", report.Failed[0].Key)
	assert.Contains(t, report.Failed[0].Err, "pdf corrompido")
	assert.Equal(t, 2, report.TotalChunks)
}

func TestIngestAllEmptyStore(t *testing.T) {
	objects := writeCorpus(t, nil)
	vectors := newVectorStore(t)

	p, err := New(objects, vectors, WithExtractor(textExtract))
	require.NoError(t, err)
	defer p.Release()

	report, err := p.IngestAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Processed)
	assert.Empty(t, report.Failed)
	assert.Zero(t, report.TotalChunks)
}

func TestIngestAllRemovesScratchFiles(t *testing.T) {
	scratch := t.TempDir()
	objects := writeCorpus(t, map[string]string{"doc.txt": "conteúdo"})
	vectors := newVectorStore(t)

	p, err := New(objects, vectors, WithExtractor(textExtract), WithScratchDir(scratch))
	require.NoError(t, err)
	defer p.Release()

	_, err = p.IngestAll(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWithChunkingValidation(t *testing.T) {
	objects := writeCorpus(t, nil)
	vectors := newVectorStore(t)

	_, err := New(objects, vectors, WithChunking(0, 0))
	assert.Error(t, err)
	_, err = New(objects, vectors, WithChunking(100, 100))
	assert.Error(t, err)

	p, err := New(objects, vectors, WithChunking(200, 20))
	require.NoError(t, err)
	p.Release()
}
