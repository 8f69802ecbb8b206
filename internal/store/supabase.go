package store

import (
	"bytes"
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/chadiek/speaking-coach/internal/domain"
	"github.com/chadiek/speaking-coach/internal/logger"
)

const (
	sessionsTable = "sessions"
	profilesTable = "profiles"
)

type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
	Bucket         string
}

// Supabase stores sessions through PostgREST and archives transcripts in a
// Storage bucket.
type Supabase struct {
	client *supabase.Client
	bucket string
	log    *zap.Logger
}

func NewSupabase(cfg SupabaseConfig) (*Supabase, error) {
	if cfg.URL == "" || cfg.ServiceRoleKey == "" {
		return nil, fmt.Errorf("missing Supabase configuration: SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY required")
	}
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Supabase{client: client, bucket: cfg.Bucket, log: logger.Named("store")}, nil
}

type sessionInsert struct {
	UserID string `json:"user_id"`
	Level  string `json:"level"`
}

type evaluationUpdate struct {
	IELTSRating domain.IELTSRatings `json:"ielts_rating"`
	TOEFLRating domain.TOEFLRatings `json:"toefl_rating"`
	Feedback    domain.Feedback     `json:"feedback"`
}

func (s *Supabase) CreateSession(_ context.Context, userID, level string) (*domain.Session, error) {
	var rows []domain.Session
	_, err := s.client.From(sessionsTable).
		Insert(sessionInsert{UserID: userID, Level: level}, false, "", "representation", "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert session: no row returned")
	}
	s.log.Info("session created", zap.String("session_id", rows[0].ID), zap.String("level", level))
	return &rows[0], nil
}

func (s *Supabase) GetSession(_ context.Context, id string) (*domain.Session, error) {
	var rows []domain.Session
	_, err := s.client.From(sessionsTable).
		Select("id,user_id,level,created_at,ielts_rating,toefl_rating,feedback", "", false).
		Eq("id", id).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("select session %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *Supabase) UpdateEvaluation(_ context.Context, id string, ev domain.Evaluation) error {
	var rows []domain.Session
	_, err := s.client.From(sessionsTable).
		Update(evaluationUpdate{IELTSRating: ev.IELTS, TOEFLRating: ev.TOEFL, Feedback: ev.Feedback}, "representation", "").
		Eq("id", id).
		ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Supabase) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	var rows []domain.Profile
	_, err := s.client.From(profilesTable).
		Select("*", "", false).
		Eq("user_id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("select profile %s: %w", userID, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// ArchiveTranscript uploads the plain-text transcript to the bucket.
func (s *Supabase) ArchiveTranscript(_ context.Context, sessionID string, messages []domain.SavedMessage) error {
	if s.bucket == "" {
		return nil
	}
	key := transcriptKey(sessionID)
	if _, err := s.client.Storage.UploadFile(s.bucket, key, bytes.NewReader(renderTranscript(messages))); err != nil {
		return fmt.Errorf("failed to upload to Supabase: %w", err)
	}
	s.log.Debug("transcript archived", zap.String("bucket", s.bucket), zap.String("key", key))
	return nil
}
