package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuerySession groups the queries asked under one session ID
type QuerySession struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID  string             `bson:"session_id" json:"session_id"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	LastActive time.Time          `bson:"last_active" json:"last_active"`
	Queries    []SessionQuery     `bson:"queries" json:"queries"`
}

// SessionQuery is one answered query within a session
type SessionQuery struct {
	Query            string    `bson:"query" json:"query"`
	QueryType        QueryType `bson:"query_type" json:"query_type"`
	Answer           string    `bson:"answer" json:"answer"`
	NumSources       int       `bson:"num_sources" json:"num_sources"`
	ReliabilityScore int       `bson:"reliability_score" json:"reliability_score"`
	AskedAt          time.Time `bson:"asked_at" json:"asked_at"`
}
