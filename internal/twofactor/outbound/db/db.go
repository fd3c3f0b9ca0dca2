package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/posture/internal/pkg/goerror"
	"github.com/shandysiswandi/posture/internal/pkg/instrument"
	"github.com/shandysiswandi/posture/internal/twofactor/entity"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	queryGetCredential = `SELECT id, totp_secret, totp_enabled, updated_at FROM profiles WHERE id = $1`

	querySaveCredential = `INSERT INTO profiles (id, totp_secret, totp_enabled, updated_at)
VALUES ($1, $2, TRUE, $3)
ON CONFLICT (id) DO UPDATE
SET totp_secret = EXCLUDED.totp_secret, totp_enabled = TRUE, updated_at = EXCLUDED.updated_at`

	queryClearCredential = `UPDATE profiles SET totp_secret = NULL, totp_enabled = FALSE, updated_at = $2 WHERE id = $1`
)

// DB stores credential records in the postgres profiles table.
type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
	now  func() time.Time
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	if ins == nil {
		ins = instrument.NewNoop()
	}
	return &DB{conn: conn, ins: ins, now: time.Now}
}

func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("twofactor.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *DB) GetCredential(ctx context.Context, identity string) (_ *entity.Credential, err error) {
	ctx, span := s.startSpan(ctx, "GetCredential")
	defer func() { s.endSpan(span, err) }()

	var cred entity.Credential
	err = s.conn.QueryRow(ctx, queryGetCredential, identity).
		Scan(&cred.Identity, &cred.Secret, &cred.Enabled, &cred.UpdatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &cred, nil
}

func (s *DB) SaveCredential(ctx context.Context, identity string, sealedSecret []byte) (err error) {
	ctx, span := s.startSpan(ctx, "SaveCredential")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, querySaveCredential, identity, sealedSecret, s.now().UTC())
	return s.mapError(err)
}

// ClearCredential nulls the secret and clears enabled in one statement. An
// identity without a row is left without one.
func (s *DB) ClearCredential(ctx context.Context, identity string) (err error) {
	ctx, span := s.startSpan(ctx, "ClearCredential")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, queryClearCredential, identity, s.now().UTC())
	return s.mapError(err)
}
