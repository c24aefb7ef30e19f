package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadBulkFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl")
	writeFile(t, path,
		`{"id":"1","source":"wiki","text":"The sky is blue."}
{"id":"2","source":"wiki","text":"Grass is green."}
`)

	res, err := Load(path)
	require.NoError(t, err)
	require.Len(t, res.Documents, 2)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, "1", res.Documents[0].ID)
	assert.Equal(t, "wiki", res.Documents[0].Source)
	assert.Equal(t, "The sky is blue.", res.Documents[0].Text)
}

func TestLoadBulkSkipsMalformedLines(t *testing.T) {
	var lines string
	for i := 0; i < 9; i++ {
		lines += fmt.Sprintf(`{"id":"doc-%d","source":"s","text":"record %d"}`+"\n", i, i)
	}
	lines += "{not json at all\n"

	path := filepath.Join(t.TempDir(), "data.jsonl")
	writeFile(t, path, lines)

	res, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, res.Documents, 9)
	assert.Equal(t, 1, res.Skipped)
}

func TestLoadBulkSkipsEmptyText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl")
	writeFile(t, path,
		`{"id":"1","source":"s","text":"kept"}
{"id":"2","source":"s","text":"   "}
`)

	res, err := Load(path)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, 1, res.Skipped)
}

func TestLoadBulkAnonymousRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl")
	writeFile(t, path,
		`{"text":"first"}
{"text":"second"}
`)

	res, err := Load(path)
	require.NoError(t, err)
	require.Len(t, res.Documents, 2)
	// Positional ids keep anonymous records distinct.
	assert.Equal(t, "#1", res.Documents[0].ID)
	assert.Equal(t, "#2", res.Documents[1].ID)
}

func TestLoadDirectoryPrefersJSONL(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data.jsonl"), `{"id":"1","source":"s","text":"from jsonl"}`+"\n")
	writeFile(t, filepath.Join(dir, "other.txt"), "plain text ignored")

	res, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "from jsonl", res.Documents[0].Text)
}

func TestLoadDirectoryDetectsBulkDataTxt(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data.txt"),
		`{"id":"1","source":"s","text":"bulk in txt clothing"}
{"id":"2","source":"s","text":"second record"}
`)

	res, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, res.Documents, 2)
	assert.Equal(t, "bulk in txt clothing", res.Documents[0].Text)
}

func TestLoadDirectoryWalksTextFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "one.txt"), "first document body")
	writeFile(t, filepath.Join(dir, "two.txt"), "second document body")
	writeFile(t, filepath.Join(dir, "ignored.md"), "not a txt file")

	res, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, res.Documents, 2)

	ids := []string{res.Documents[0].ID, res.Documents[1].ID}
	assert.Contains(t, ids, "a/one.txt")
	assert.Contains(t, ids, "two.txt")
	for _, d := range res.Documents {
		assert.Equal(t, d.ID, d.Source)
	}
}

func TestLoadEmptyCorpus(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorpusEmpty)
}

func TestLoadMissingPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorpusEmpty)
}
