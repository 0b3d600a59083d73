package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	apperrors "github.com/meditrack/staffcore/pkg/util"
)

// ErrNestedTransaction is returned when RunInTransaction is called from inside a unit of work.
var ErrNestedTransaction = errors.New("nested transactions are not supported")

const rollbackTimeout = 5 * time.Second

type txKey struct{}

// TxFunc is a unit of work bound to a single connection.
type TxFunc func(ctx context.Context, tx Executor) error

// RunInTransaction runs fn between BEGIN and COMMIT on one dedicated connection.
// Any error or panic from fn rolls the transaction back. The connection is
// always returned to the pool.
func (d *Database) RunInTransaction(ctx context.Context, fn TxFunc) (err error) {
	if ctx.Value(txKey{}) != nil {
		return apperrors.NewInternalError(ErrNestedTransaction)
	}

	conn, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer d.pool.Release(conn)

	if _, err := conn.Exec(ctx, "BEGIN"); err != nil {
		d.logger.Error("begin transaction", zap.Error(err))
		return classifyError(err)
	}

	tx := &txExecutor{conn: conn}
	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			d.rollback(ctx, conn)
			panic(p)
		}
		d.rollback(ctx, conn)
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx), tx); err != nil {
		return err
	}

	tag, err := conn.Exec(ctx, "COMMIT")
	if err != nil {
		d.logger.Error("commit transaction", zap.Error(err))
		return classifyError(err)
	}
	committed = true
	// Postgres answers COMMIT of an aborted transaction with a ROLLBACK tag.
	if tag.String() == "ROLLBACK" {
		return apperrors.NewQueryError(pgx.ErrTxCommitRollback)
	}
	return nil
}

func (d *Database) rollback(ctx context.Context, conn Conn) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if _, err := conn.Exec(cleanupCtx, "ROLLBACK"); err != nil {
		d.logger.Error("rollback transaction", zap.Error(err))
	}
}

// InTransaction reports whether ctx belongs to a running unit of work.
func InTransaction(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

type txExecutor struct {
	conn Conn
}

func (t *txExecutor) Execute(ctx context.Context, stmt string, args ...any) (*RowSet, error) {
	set, err := execute(ctx, t.conn, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("in transaction: %w", err)
	}
	return set, nil
}

func (t *txExecutor) QueryOne(ctx context.Context, stmt string, args ...any) (Row, bool, error) {
	set, err := t.Execute(ctx, stmt, args...)
	if err != nil {
		return nil, false, err
	}
	row, ok := set.First()
	return row, ok, nil
}
