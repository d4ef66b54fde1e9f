package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Dataset is an uploaded tabular file (.csv or .xlsx) available to the
// data-analysis branch
type Dataset struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	DatasetID  string             `bson:"dataset_id" json:"dataset_id"`
	Filename   string             `bson:"filename" json:"filename"`
	FilePath   string             `bson:"file_path" json:"-"`
	Size       int64              `bson:"size" json:"size"`
	UploadedAt time.Time          `bson:"uploaded_at" json:"uploaded_at"`
}
