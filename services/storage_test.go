package services

import (
	"crypto/md5"
	"encoding/hex"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basin-research-platform/internal/config"
)

func newTestStorage(t *testing.T) *FileStorageManager {
	t.Helper()
	return NewFileStorageManager(&config.Config{
		FileStorageDir: t.TempDir(),
		MaxFileSize:    1 << 20,
	})
}

func uploadFile(t *testing.T, name string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f, &multipart.FileHeader{Filename: name, Size: int64(len(content))}
}

func TestStorePDFWritesAndHashes(t *testing.T) {
	sm := newTestStorage(t)
	content := []byte("%PDF-1.4\nfake paper body")
	file, header := uploadFile(t, "lerma.pdf", content)

	stored, err := sm.StorePDF(file, header)

	require.NoError(t, err)
	assert.Equal(t, "lerma.pdf", stored.Name)
	assert.Equal(t, int64(len(content)), stored.Size)

	sum := md5.Sum(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), stored.Hash)

	onDisk, err := os.ReadFile(stored.Path)
	require.NoError(t, err)
	assert.Equal(t, content, onDisk)
	assert.Equal(t, "papers", filepath.Base(filepath.Dir(stored.Path)))
}

func TestStorePDFRejectsNonPDFContent(t *testing.T) {
	sm := newTestStorage(t)
	file, header := uploadFile(t, "fake.pdf", []byte("MZ not a pdf at all"))

	_, err := sm.StorePDF(file, header)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PDF file")
	// The rejected file must not linger in the papers directory.
	_, statErr := os.Stat(filepath.Join(sm.paperDir, "fake.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStorePDFRejectsBadHeaders(t *testing.T) {
	sm := newTestStorage(t)

	cases := []struct {
		name    string
		header  *multipart.FileHeader
		wantErr string
	}{
		{"empty name", &multipart.FileHeader{Filename: "", Size: 10}, "filename is required"},
		{"too long", &multipart.FileHeader{Filename: strings.Repeat("a", 300) + ".pdf", Size: 10}, "filename too long"},
		{"path traversal", &multipart.FileHeader{Filename: "../evil.pdf", Size: 10}, "invalid characters"},
		{"reserved char", &multipart.FileHeader{Filename: "weird:name.pdf", Size: 10}, "invalid characters"},
		{"wrong extension", &multipart.FileHeader{Filename: "notes.txt", Size: 10}, "only .pdf files"},
		{"empty file", &multipart.FileHeader{Filename: "empty.pdf", Size: 0}, "file is empty"},
		{"oversize", &multipart.FileHeader{Filename: "big.pdf", Size: 2 << 20}, "exceeds maximum"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sm.StorePDF(nil, tc.header)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestStoreTableAcceptsOnlyTabularFormats(t *testing.T) {
	sm := newTestStorage(t)

	file, header := uploadFile(t, "stations.csv", []byte("a,b\n1,2\n"))
	stored, err := sm.StoreTable(file, header)
	require.NoError(t, err)
	assert.Equal(t, "tables", filepath.Base(filepath.Dir(stored.Path)))

	_, err = sm.StoreTable(nil, &multipart.FileHeader{Filename: "data.ods", Size: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported table format")
}

func TestStoreSameContentSameHash(t *testing.T) {
	sm := newTestStorage(t)
	content := []byte("%PDF-1.4\nidentical body")

	fileA, headerA := uploadFile(t, "copy_a.pdf", content)
	fileB, headerB := uploadFile(t, "copy_b.pdf", content)

	storedA, err := sm.StorePDF(fileA, headerA)
	require.NoError(t, err)
	storedB, err := sm.StorePDF(fileB, headerB)
	require.NoError(t, err)

	assert.Equal(t, storedA.Hash, storedB.Hash)
	assert.NotEqual(t, storedA.Path, storedB.Path)
}

func TestCleanupIgnoresMissingPaths(t *testing.T) {
	sm := newTestStorage(t)

	sm.Cleanup("")
	sm.Cleanup(filepath.Join(t.TempDir(), "never-existed.pdf"))

	file, header := uploadFile(t, "gone.pdf", []byte("%PDF-1.4\nbody"))
	stored, err := sm.StorePDF(file, header)
	require.NoError(t, err)

	sm.Cleanup(stored.Path)
	_, statErr := os.Stat(stored.Path)
	assert.True(t, os.IsNotExist(statErr))
}
