package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aluque/mma-planner/internal/telemetry/tracing"
)

// PostgresRepo is the alternative session store for setups where the flat
// JSON file is not enough. Same contract as FileRepo.
type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{
		db: db,
	}
}

func (r *PostgresRepo) List(ctx context.Context) (_ []Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT
			id, fecha, tipo, tiempo, peso, calorias, intensidad, notas, created_at, updated_at
		FROM training_session
		ORDER BY fecha DESC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id int) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT
			id, fecha, tipo, tiempo, peso, calorias, intensidad, notas, created_at, updated_at
		FROM training_session
		WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotFound
	}

	return scanSession(rows)
}

func (r *PostgresRepo) Add(ctx context.Context, session *Session) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session.CreatedAt = time.Now()

	rows, err := r.db.Query(ctx, `
		INSERT INTO training_session (fecha, tipo, tiempo, peso, calorias, intensidad, notas, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id;`,
		session.Fecha, session.Tipo, session.Tiempo, session.Peso,
		session.Calorias, session.Intensidad, session.Notas, session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	session.ID = id
	return session, nil
}

func (r *PostgresRepo) Update(ctx context.Context, session *Session) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session.UpdatedAt = time.Now()

	tag, err := r.db.Exec(ctx, `
		UPDATE training_session
		SET fecha = $1, tipo = $2, tiempo = $3, peso = $4, calorias = $5,
			intensidad = $6, notas = $7, updated_at = $8
		WHERE id = $9;`,
		session.Fecha, session.Tipo, session.Tiempo, session.Peso,
		session.Calorias, session.Intensidad, session.Notas, session.UpdatedAt,
		session.ID,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrSessionNotFound
	}

	return r.Get(ctx, session.ID)
}

func (r *PostgresRepo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx, `DELETE FROM training_session WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func scanSession(rows pgx.Rows) (*Session, error) {
	var s Session
	var updatedAt *time.Time
	if err := rows.Scan(
		&s.ID, &s.Fecha, &s.Tipo, &s.Tiempo, &s.Peso,
		&s.Calorias, &s.Intensidad, &s.Notas, &s.CreatedAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if updatedAt != nil {
		s.UpdatedAt = *updatedAt
	}
	return &s, nil
}
