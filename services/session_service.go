package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"basin-research-platform/internal/config"
	"basin-research-platform/models"
)

var ErrSessionNotFound = errors.New("session not found")

const answerCachePrefix = "session:answer:"

// SessionService keeps query history per session in Mongo and caches the
// latest answer in Redis so clients can re-fetch it cheaply.
type SessionService struct {
	sessions  *mongo.Collection
	rdb       *redis.Client
	answerTTL time.Duration
	maxIdle   time.Duration
}

func NewSessionService(mongoClient *mongo.Client, rdb *redis.Client, cfg *config.Config) *SessionService {
	return &SessionService{
		sessions:  mongoClient.Database(cfg.DBName).Collection("sessions"),
		rdb:       rdb,
		answerTTL: time.Duration(cfg.AnswerCacheTTLMins) * time.Minute,
		maxIdle:   time.Duration(cfg.SessionTTLHours) * time.Hour,
	}
}

// EnsureSession returns a live session id, creating the record when the
// client did not send one or sent an unknown id.
func (s *SessionService) EnsureSession(ctx context.Context, sessionID string) (string, error) {
	now := time.Now()
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	update := bson.M{
		"$set":         bson.M{"last_active": now},
		"$setOnInsert": bson.M{"session_id": sessionID, "created_at": now, "queries": []models.SessionQuery{}},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := s.sessions.UpdateOne(ctx, bson.M{"session_id": sessionID}, update, opts); err != nil {
		return "", fmt.Errorf("failed to upsert session: %w", err)
	}
	return sessionID, nil
}

// AppendQuery records an answered query on the session history.
func (s *SessionService) AppendQuery(ctx context.Context, sessionID string, entry models.SessionQuery) error {
	update := bson.M{
		"$push": bson.M{"queries": entry},
		"$set":  bson.M{"last_active": time.Now()},
	}
	res, err := s.sessions.UpdateOne(ctx, bson.M{"session_id": sessionID}, update)
	if err != nil {
		return fmt.Errorf("failed to append query: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Get loads a session with its full query history.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*models.QuerySession, error) {
	var session models.QuerySession
	err := s.sessions.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

// Delete removes a session and its cached answer.
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	res, err := s.sessions.DeleteOne(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrSessionNotFound
	}
	s.rdb.Del(ctx, answerCachePrefix+sessionID)
	return nil
}

// CacheAnswer stores the latest result for the session with a short TTL.
func (s *SessionService) CacheAnswer(ctx context.Context, sessionID string, result *models.QueryResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode cached answer: %w", err)
	}
	if err := s.rdb.Set(ctx, answerCachePrefix+sessionID, payload, s.answerTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache answer: %w", err)
	}
	return nil
}

// LatestAnswer returns the cached result for the session, if still live.
func (s *SessionService) LatestAnswer(ctx context.Context, sessionID string) (*models.QueryResult, bool) {
	payload, err := s.rdb.Get(ctx, answerCachePrefix+sessionID).Bytes()
	if err != nil {
		return nil, false
	}
	var result models.QueryResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false
	}
	return &result, true
}

// CleanupExpired deletes sessions idle past the retention window and
// returns how many were removed.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.maxIdle)
	res, err := s.sessions.DeleteMany(ctx, bson.M{"last_active": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	return res.DeletedCount, nil
}
