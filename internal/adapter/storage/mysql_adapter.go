package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rl1809/sales/internal/port"
)

var ErrOptimisticLock = errors.New("optimistic lock conflict")

//go:embed schema.sql
var schema string

// MySQLAdapter implements port.Database on top of a MySQL connection pool.
// The DSN must set parseTime=true and loc=UTC.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate creates the tables when they do not exist yet.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Begin(ctx context.Context) (port.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &unitOfWork{db: m.db}, nil
}

// flushFunc writes one tracked entity and returns the rows it affected.
type flushFunc func(ctx context.Context, tx *sql.Tx) (int64, error)

// unitOfWork opens its transaction on the first write or tracked read.
// Read-only lookups run on that transaction once it is open, so a unit of
// work holding row locks never waits for a second pool connection.
type unitOfWork struct {
	db *sql.DB

	txMu     sync.Mutex // serializes reads on tx
	mu       sync.Mutex
	tx       *sql.Tx
	tracked  []flushFunc
	removed  map[int64]bool
	affected int64
	done     bool
}

func (u *unitOfWork) Customers() port.CustomerRepository { return &customerRepository{u: u} }
func (u *unitOfWork) Branches() port.BranchRepository     { return &branchRepository{u: u} }
func (u *unitOfWork) Products() port.ProductRepository    { return &productRepository{u: u} }
func (u *unitOfWork) Sales() port.SaleRepository          { return &saleRepository{u: u} }

func (u *unitOfWork) begin(ctx context.Context) (*sql.Tx, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.done {
		return nil, sql.ErrTxDone
	}
	if u.tx == nil {
		tx, err := u.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin tx: %w", err)
		}
		u.tx = tx
	}
	return u.tx, nil
}

// queryer is the read surface shared by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// read runs fn on the open transaction, or on the pool before one exists.
// fn must consume its rows before returning.
func (u *unitOfWork) read(fn func(q queryer) error) error {
	u.mu.Lock()
	tx := u.tx
	if u.done {
		tx = nil
	}
	u.mu.Unlock()

	if tx == nil {
		return fn(u.db)
	}
	u.txMu.Lock()
	defer u.txMu.Unlock()
	return fn(tx)
}

func (u *unitOfWork) track(fn flushFunc) {
	u.mu.Lock()
	u.tracked = append(u.tracked, fn)
	u.mu.Unlock()
}

func (u *unitOfWork) addAffected(result sql.Result) {
	rows, _ := result.RowsAffected()
	u.addRows(rows)
}

func (u *unitOfWork) addRows(rows int64) {
	u.mu.Lock()
	u.affected += rows
	u.mu.Unlock()
}

func (u *unitOfWork) markRemoved(saleID int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.removed == nil {
		u.removed = make(map[int64]bool)
	}
	u.removed[saleID] = true
}

func (u *unitOfWork) isRemoved(saleID int64) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.removed[saleID]
}

func (u *unitOfWork) Commit(ctx context.Context) (bool, error) {
	u.mu.Lock()
	tx, tracked := u.tx, u.tracked
	u.mu.Unlock()

	if tx == nil {
		return false, nil
	}
	defer u.Rollback()

	for _, flush := range tracked {
		rows, err := flush(ctx, tx)
		if err != nil {
			return false, err
		}
		u.addRows(rows)
	}

	u.mu.Lock()
	affected := u.affected
	u.mu.Unlock()
	if affected == 0 {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}

	u.mu.Lock()
	u.done = true
	u.mu.Unlock()
	return true, nil
}

func (u *unitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tx == nil || u.done {
		u.done = true
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

// likePattern turns a user supplied fragment into a LIKE substring pattern.
func likePattern(fragment string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(fragment)
	return "%" + strings.ToUpper(strings.TrimSpace(escaped)) + "%"
}
