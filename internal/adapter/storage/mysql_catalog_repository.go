package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rl1809/sales/internal/core/domain"
)

type customerRepository struct {
	u *unitOfWork
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	tx, err := r.u.begin(ctx)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `INSERT INTO customers (id, name) VALUES (?, ?)`, customer.ID, customer.Name)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	r.u.addAffected(result)
	return nil
}

// GetByID locks the customer row; a rename is written on Commit.
func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	tx, err := r.u.begin(ctx)
	if err != nil {
		return nil, err
	}

	customer, err := scanParty(tx.QueryRowContext(ctx, `SELECT id, name FROM customers WHERE id = ? FOR UPDATE`, id))
	if err != nil || customer == nil {
		return nil, err
	}
	c := &domain.Customer{ID: customer.id, Name: customer.name}
	r.u.track(renameFlush("customers", c.ID, customer.name, func() string { return c.Name }))
	return c, nil
}

func (r *customerRepository) GetByIDReadOnly(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	customer, err := r.u.partyByID(ctx, "customers", id)
	if err != nil || customer == nil {
		return nil, err
	}
	return &domain.Customer{ID: customer.id, Name: customer.name}, nil
}

func (r *customerRepository) List(ctx context.Context, name string) ([]domain.Customer, error) {
	parties, err := r.u.listParties(ctx, "customers", name)
	if err != nil {
		return nil, err
	}
	customers := make([]domain.Customer, 0, len(parties))
	for _, p := range parties {
		customers = append(customers, domain.Customer{ID: p.id, Name: p.name})
	}
	return customers, nil
}

type branchRepository struct {
	u *unitOfWork
}

func (r *branchRepository) Create(ctx context.Context, branch *domain.Branch) error {
	tx, err := r.u.begin(ctx)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `INSERT INTO branches (id, name) VALUES (?, ?)`, branch.ID, branch.Name)
	if err != nil {
		return fmt.Errorf("insert branch: %w", err)
	}
	r.u.addAffected(result)
	return nil
}

func (r *branchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Branch, error) {
	tx, err := r.u.begin(ctx)
	if err != nil {
		return nil, err
	}

	branch, err := scanParty(tx.QueryRowContext(ctx, `SELECT id, name FROM branches WHERE id = ? FOR UPDATE`, id))
	if err != nil || branch == nil {
		return nil, err
	}
	b := &domain.Branch{ID: branch.id, Name: branch.name}
	r.u.track(renameFlush("branches", b.ID, branch.name, func() string { return b.Name }))
	return b, nil
}

func (r *branchRepository) GetByIDReadOnly(ctx context.Context, id uuid.UUID) (*domain.Branch, error) {
	branch, err := r.u.partyByID(ctx, "branches", id)
	if err != nil || branch == nil {
		return nil, err
	}
	return &domain.Branch{ID: branch.id, Name: branch.name}, nil
}

func (r *branchRepository) List(ctx context.Context, name string) ([]domain.Branch, error) {
	parties, err := r.u.listParties(ctx, "branches", name)
	if err != nil {
		return nil, err
	}
	branches := make([]domain.Branch, 0, len(parties))
	for _, p := range parties {
		branches = append(branches, domain.Branch{ID: p.id, Name: p.name})
	}
	return branches, nil
}

// party is the shared row shape of customers and branches.
type party struct {
	id   uuid.UUID
	name string
}

func scanParty(row *sql.Row) (*party, error) {
	var p party
	err := row.Scan(&p.id, &p.name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	return &p, nil
}

// table is always a package constant in the queries below.

func (u *unitOfWork) partyByID(ctx context.Context, table string, id uuid.UUID) (*party, error) {
	var p *party
	err := u.read(func(q queryer) error {
		var err error
		p, err = scanParty(q.QueryRowContext(ctx, `SELECT id, name FROM `+table+` WHERE id = ?`, id))
		return err
	})
	return p, err
}

// listParties reads customers or branches whose name contains fragment.
func (u *unitOfWork) listParties(ctx context.Context, table, fragment string) ([]party, error) {
	var parties []party
	err := u.read(func(q queryer) error {
		rows, err := q.QueryContext(ctx, `SELECT id, name FROM `+table+` WHERE name LIKE ? ORDER BY name`, likePattern(fragment))
		if err != nil {
			return fmt.Errorf("query %s: %w", table, err)
		}
		defer rows.Close()

		for rows.Next() {
			var p party
			if err := rows.Scan(&p.id, &p.name); err != nil {
				return fmt.Errorf("scan %s: %w", table, err)
			}
			parties = append(parties, p)
		}
		return rows.Err()
	})
	return parties, err
}

func renameFlush(table string, id uuid.UUID, loaded string, current func() string) flushFunc {
	return func(ctx context.Context, tx *sql.Tx) (int64, error) {
		name := current()
		if name == loaded {
			return 0, nil
		}
		result, err := tx.ExecContext(ctx, `UPDATE `+table+` SET name = ? WHERE id = ?`, name, id)
		if err != nil {
			return 0, fmt.Errorf("update %s: %w", table, err)
		}
		return result.RowsAffected()
	}
}

type productRepository struct {
	u *unitOfWork
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	tx, err := r.u.begin(ctx)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `INSERT INTO products (name, price) VALUES (?, ?)`, product.Name, product.Price)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	r.u.addAffected(result)

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	product.ID = id
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.u.read(func(q queryer) error {
		return q.QueryRowContext(ctx, `SELECT id, name, price FROM products WHERE id = ?`, id).
			Scan(&p.ID, &p.Name, &p.Price)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.query(ctx, `SELECT id, name, price FROM products WHERE id IN (`+placeholders(len(ids))+`)`, args...)
}

func (r *productRepository) List(ctx context.Context, name string) ([]domain.Product, error) {
	return r.query(ctx, `SELECT id, name, price FROM products WHERE name LIKE ? ORDER BY name`, likePattern(name))
}

func (r *productRepository) query(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	var products []domain.Product
	err := r.u.read(func(q queryer) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query products: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var p domain.Product
			if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
				return fmt.Errorf("scan product: %w", err)
			}
			products = append(products, p)
		}
		return rows.Err()
	})
	return products, err
}
