package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	apperrors "github.com/meditrack/staffcore/pkg/util"
)

// Row is one result row keyed by column name.
type Row map[string]any

// RowSet is the uniform result of any statement.
type RowSet struct {
	Columns      []string
	Rows         []Row
	RowsAffected int64
	// InsertID holds the first returned "id" column of an INSERT, if any.
	InsertID any
}

// First returns the first row, or false for an empty result.
func (s *RowSet) First() (Row, bool) {
	if s == nil || len(s.Rows) == 0 {
		return nil, false
	}
	return s.Rows[0], true
}

// Executor runs parameterized statements. Arguments are always sent out-of-band.
type Executor interface {
	Execute(ctx context.Context, stmt string, args ...any) (*RowSet, error)
	QueryOne(ctx context.Context, stmt string, args ...any) (Row, bool, error)
}

var _ Executor = (*Database)(nil)

// Database is the query facade over the connection pool.
type Database struct {
	pool   Acquirer
	logger *zap.Logger
}

// NewDatabase builds the facade.
func NewDatabase(pool Acquirer, logger *zap.Logger) *Database {
	return &Database{pool: pool, logger: logger.Named("database")}
}

// Execute runs stmt on a pooled connection, initializing the pool on first use.
func (d *Database) Execute(ctx context.Context, stmt string, args ...any) (*RowSet, error) {
	conn, err := d.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer d.pool.Release(conn)

	set, err := execute(ctx, conn, stmt, args...)
	if err != nil {
		d.logFailure(err)
		return nil, err
	}
	return set, nil
}

// QueryOne returns the first row of stmt. Zero rows is reported through the bool, not an error.
func (d *Database) QueryOne(ctx context.Context, stmt string, args ...any) (Row, bool, error) {
	set, err := d.Execute(ctx, stmt, args...)
	if err != nil {
		return nil, false, err
	}
	row, ok := set.First()
	return row, ok, nil
}

func (d *Database) acquire(ctx context.Context) (Conn, error) {
	if err := d.pool.Initialize(ctx); err != nil {
		d.logger.Error("initialize connection pool", zap.Error(err))
		return nil, err
	}
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		d.logger.Warn("acquire connection", zap.Error(err))
		return nil, err
	}
	return conn, nil
}

func (d *Database) logFailure(err error) {
	if apperrors.IsKind(err, apperrors.KindConflict) {
		d.logger.Debug("statement violated a constraint", zap.Error(err))
		return
	}
	d.logger.Error("statement failed", zap.Error(err))
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func execute(ctx context.Context, q querier, stmt string, args ...any) (*RowSet, error) {
	rows, err := q.Query(ctx, stmt, args...)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	set := &RowSet{Columns: make([]string, len(fields))}
	for i, f := range fields {
		set.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, classifyError(err)
		}
		row := make(Row, len(set.Columns))
		for i, col := range set.Columns {
			row[col] = values[i]
		}
		set.Rows = append(set.Rows, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classifyError(err)
	}

	tag := rows.CommandTag()
	set.RowsAffected = tag.RowsAffected()
	if tag.Insert() && len(set.Rows) > 0 {
		if id, ok := set.Rows[0]["id"]; ok {
			set.InsertID = id
		}
	}
	return set, nil
}

// classifyError tags driver errors by SQLSTATE. Integrity violations (class 23)
// become conflicts carrying the violated constraint.
func classifyError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) == 5 && pgErr.Code[:2] == "23" {
			conflict := apperrors.NewDomainError(apperrors.KindConflict, "constraint violated", 409, map[string]any{
				"constraint": pgErr.ConstraintName,
				"sqlstate":   pgErr.Code,
			})
			conflict.Err = err
			return conflict
		}
		return apperrors.NewQueryError(err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return apperrors.NewConnectionError(err)
	}
	return apperrors.NewQueryError(err)
}

// ConstraintOf returns the constraint name carried by a conflict error.
func ConstraintOf(err error) string {
	var de *apperrors.DomainError
	if !errors.As(err, &de) || de.Kind != apperrors.KindConflict {
		return ""
	}
	name, _ := de.Details["constraint"].(string)
	return name
}

// Value reads column from r as T. A NULL column yields the zero value.
func Value[T any](r Row, column string) (T, error) {
	var zero T
	v, ok := r[column]
	if !ok {
		return zero, fmt.Errorf("column %q not in result", column)
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("column %q: expected %T, got %T", column, zero, v)
	}
	return t, nil
}
