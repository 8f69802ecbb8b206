package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/chadiek/speaking-coach/internal/domain"
	"github.com/chadiek/speaking-coach/internal/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewPostgres connects to dsn and applies pending migrations.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool, log: logger.Named("store")}, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) CreateSession(ctx context.Context, userID, level string) (*domain.Session, error) {
	s := &domain.Session{ID: uuid.NewString(), UserID: userID, Level: level}
	err := p.pool.QueryRow(ctx,
		`INSERT INTO sessions (id, user_id, level) VALUES ($1, $2, $3) RETURNING created_at`,
		s.ID, userID, level,
	).Scan(&s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	p.log.Info("session created", zap.String("session_id", s.ID), zap.String("level", level))
	return s, nil
}

func (p *Postgres) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var (
		s                      domain.Session
		ielts, toefl, feedback []byte
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id::text, user_id, level, created_at, ielts_rating, toefl_rating, feedback
		   FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.Level, &s.CreatedAt, &ielts, &toefl, &feedback)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if err := decodeRatings(&s, ielts, toefl, feedback); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return &s, nil
}

func decodeRatings(s *domain.Session, ielts, toefl, feedback []byte) error {
	if ielts != nil {
		s.IELTSRating = new(domain.IELTSRatings)
		if err := json.Unmarshal(ielts, s.IELTSRating); err != nil {
			return fmt.Errorf("decode ielts_rating: %w", err)
		}
	}
	if toefl != nil {
		s.TOEFLRating = new(domain.TOEFLRatings)
		if err := json.Unmarshal(toefl, s.TOEFLRating); err != nil {
			return fmt.Errorf("decode toefl_rating: %w", err)
		}
	}
	if feedback != nil {
		s.Feedback = new(domain.Feedback)
		if err := json.Unmarshal(feedback, s.Feedback); err != nil {
			return fmt.Errorf("decode feedback: %w", err)
		}
	}
	return nil
}

func (p *Postgres) UpdateEvaluation(ctx context.Context, id string, ev domain.Evaluation) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	ielts, err := json.Marshal(ev.IELTS)
	if err != nil {
		return err
	}
	toefl, err := json.Marshal(ev.TOEFL)
	if err != nil {
		return err
	}
	feedback, err := json.Marshal(ev.Feedback)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE sessions SET ielts_rating = $2, toefl_rating = $3, feedback = $4 WHERE id = $1`,
		id, ielts, toefl, feedback,
	)
	if err != nil {
		return fmt.Errorf("failed to update session ratings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	pr := domain.Profile{UserID: userID}
	err := p.pool.QueryRow(ctx,
		`SELECT name, age, occupation, country, native_language, interests, goal
		   FROM profiles WHERE user_id = $1`, userID,
	).Scan(&pr.Name, &pr.Age, &pr.Occupation, &pr.Country, &pr.NativeLanguage, &pr.Interests, &pr.Goal)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &pr, nil
}
