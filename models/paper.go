package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Paper represents one ingested scientific document
type Paper struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	PaperID         string             `bson:"paper_id" json:"paper_id"`
	Filename        string             `bson:"filename" json:"filename"`
	Title           string             `bson:"title" json:"title"`
	Authors         []string           `bson:"authors,omitempty" json:"authors,omitempty"`
	Year            int                `bson:"year,omitempty" json:"year,omitempty"`
	Pages           int                `bson:"pages" json:"pages"`
	ChunkCount      int                `bson:"chunk_count" json:"chunk_count"`
	FilePath        string             `bson:"file_path" json:"-"`
	FileHash        string             `bson:"file_hash" json:"-"` // For deduplication
	CompressedText  []byte             `bson:"compressed_text,omitempty" json:"-"`
	TextCompression string             `bson:"text_compression,omitempty" json:"-"`
	Status          string             `bson:"status" json:"status"` // pending, processing, indexed, failed
	ErrorMessage    string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	UploadedAt      time.Time          `bson:"uploaded_at" json:"uploaded_at"`
	IndexedAt       *time.Time         `bson:"indexed_at,omitempty" json:"indexed_at,omitempty"`
}

// PaperChunk is a denormalized passage in its own collection, the
// $vectorSearch stage runs against it.
type PaperChunk struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	ChunkID   string             `bson:"chunk_id"`
	PaperID   string             `bson:"paper_id"`
	Filename  string             `bson:"filename"`
	Title     string             `bson:"title"`
	Text      string             `bson:"text"`
	Position  int                `bson:"position"`
	Vector    []float32          `bson:"vector,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

// UploadResponse represents the response after a successful upload
type UploadResponse struct {
	PaperID  string `json:"paper_id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	TaskID   string `json:"task_id,omitempty"`
}

// Paper status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusIndexed    = "indexed"
	StatusFailed     = "failed"
)
