package services

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"basin-research-platform/internal/config"
)

// FileStorageManager stores uploaded files on disk under the configured
// base directory, split by kind (papers vs. tabular datasets). Writes go
// through a temp file and an atomic rename.
type FileStorageManager struct {
	maxFileSize int64
	paperDir    string
	tableDir    string
	tempDir     string
}

// StoredFile describes a file after it has been written to disk.
type StoredFile struct {
	Path string
	Name string
	Hash string
	Size int64
}

func NewFileStorageManager(cfg *config.Config) *FileStorageManager {
	baseDir := cfg.FileStorageDir
	if baseDir == "" {
		baseDir = "./storage"
	}

	paperDir := filepath.Join(baseDir, "papers")
	tableDir := filepath.Join(baseDir, "tables")
	tempDir := filepath.Join(baseDir, "temp")

	os.MkdirAll(paperDir, 0755)
	os.MkdirAll(tableDir, 0755)
	os.MkdirAll(tempDir, 0755)

	return &FileStorageManager{
		maxFileSize: cfg.MaxFileSize,
		paperDir:    paperDir,
		tableDir:    tableDir,
		tempDir:     tempDir,
	}
}

// StorePDF validates and persists an uploaded PDF. The stored name keeps
// the original filename so retrieval results can reference it directly.
func (sm *FileStorageManager) StorePDF(file multipart.File, header *multipart.FileHeader) (*StoredFile, error) {
	if err := sm.validateHeader(header, ".pdf"); err != nil {
		return nil, err
	}

	stored, err := sm.store(file, header.Filename, sm.paperDir)
	if err != nil {
		return nil, err
	}

	if err := validatePDFMagic(stored.Path); err != nil {
		os.Remove(stored.Path)
		return nil, err
	}
	return stored, nil
}

// StoreTable persists an uploaded tabular file (.csv or .xlsx).
func (sm *FileStorageManager) StoreTable(file multipart.File, header *multipart.FileHeader) (*StoredFile, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".csv" && ext != ".xlsx" {
		return nil, fmt.Errorf("unsupported table format %s: only .csv and .xlsx are accepted", ext)
	}
	if err := sm.validateHeader(header, ext); err != nil {
		return nil, err
	}
	return sm.store(file, header.Filename, sm.tableDir)
}

// Cleanup removes a stored file, ignoring missing paths.
func (sm *FileStorageManager) Cleanup(path string) {
	if path == "" {
		return
	}
	os.Remove(path)
}

func (sm *FileStorageManager) validateHeader(header *multipart.FileHeader, ext string) error {
	if header.Filename == "" {
		return fmt.Errorf("filename is required")
	}
	if len(header.Filename) > 255 {
		return fmt.Errorf("filename too long (max 255 characters)")
	}
	dangerous := []string{"../", "..\\", "<", ">", ":", "\"", "|", "?", "*", "\x00"}
	for _, char := range dangerous {
		if strings.Contains(header.Filename, char) {
			return fmt.Errorf("filename contains invalid characters")
		}
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ext) {
		return fmt.Errorf("only %s files are accepted", ext)
	}
	if header.Size == 0 {
		return fmt.Errorf("file is empty")
	}
	if sm.maxFileSize > 0 && header.Size > sm.maxFileSize {
		return fmt.Errorf("file size %d exceeds maximum allowed size %d", header.Size, sm.maxFileSize)
	}
	return nil
}

// store streams the upload into a temp file while hashing, then renames
// into the destination directory.
func (sm *FileStorageManager) store(file multipart.File, filename, destDir string) (*StoredFile, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to reset file position: %w", err)
	}

	name := filepath.Base(filename)
	finalPath := filepath.Join(destDir, name)

	tempPath := filepath.Join(sm.tempDir, uuid.NewString()+".tmp")
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	hasher := md5.New()
	written, err := io.Copy(io.MultiWriter(tempFile, hasher), file)
	if err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	if written == 0 {
		os.Remove(tempPath)
		return nil, fmt.Errorf("file is empty")
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to move file to final location: %w", err)
	}

	return &StoredFile{
		Path: finalPath,
		Name: name,
		Hash: hex.EncodeToString(hasher.Sum(nil)),
		Size: written,
	}, nil
}

func validatePDFMagic(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file for validation: %w", err)
	}
	defer f.Close()

	header := make([]byte, 4)
	if _, err := io.ReadFull(f, header); err != nil {
		return fmt.Errorf("failed to read file header: %w", err)
	}
	if string(header) != "%PDF" {
		return fmt.Errorf("invalid PDF file: missing PDF header")
	}
	return nil
}
