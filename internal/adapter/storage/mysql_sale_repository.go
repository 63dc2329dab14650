package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sales/internal/core/domain"
)

type saleRepository struct {
	u *unitOfWork
}

func (r *saleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	tx, err := r.u.begin(ctx)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO sales (status, customer_id, branch_id, total_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(sale.Status()), sale.CustomerID(), sale.BranchID(), sale.TotalAmount(),
		sale.CreatedAt(), sale.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	r.u.addAffected(result)

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sale id: %w", err)
	}
	sale.AssignID(id)

	rows, err := insertItems(ctx, tx, sale)
	if err != nil {
		return err
	}
	r.u.addRows(rows)

	r.trackSale(sale)
	return nil
}

// GetByID locks the sale row until the unit of work ends.
func (r *saleRepository) GetByID(ctx context.Context, id int64) (*domain.Sale, error) {
	tx, err := r.u.begin(ctx)
	if err != nil {
		return nil, err
	}

	var (
		status               string
		customerID, branchID uuid.UUID
		createdAt, updatedAt time.Time
	)
	err = tx.QueryRowContext(ctx, `
		SELECT status, customer_id, branch_id, created_at, updated_at
		FROM sales WHERE id = ? FOR UPDATE`, id,
	).Scan(&status, &customerID, &branchID, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query sale: %w", err)
	}

	items, err := loadItems(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	sale := domain.RestoreSale(id, domain.SaleStatus(status), customerID, branchID, createdAt.UTC(), updatedAt.UTC(), items)
	r.trackSale(sale)
	return sale, nil
}

// trackSale registers sale for flushing when it changes before Commit.
func (r *saleRepository) trackSale(sale *domain.Sale) {
	snapshot := sale.UpdatedAt()
	r.u.track(func(ctx context.Context, tx *sql.Tx) (int64, error) {
		if r.u.isRemoved(sale.ID()) || sale.UpdatedAt().Equal(snapshot) {
			return 0, nil
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE sales
			SET status = ?, customer_id = ?, branch_id = ?, total_amount = ?, updated_at = ?
			WHERE id = ? AND updated_at = ?`,
			string(sale.Status()), sale.CustomerID(), sale.BranchID(), sale.TotalAmount(),
			sale.UpdatedAt(), sale.ID(), snapshot,
		)
		if err != nil {
			return 0, fmt.Errorf("update sale %d: %w", sale.ID(), err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			return 0, ErrOptimisticLock
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = ?`, sale.ID()); err != nil {
			return 0, fmt.Errorf("delete sale items: %w", err)
		}
		items, err := insertItems(ctx, tx, sale)
		if err != nil {
			return 0, err
		}
		return rows + items, nil
	})
}

func (r *saleRepository) Remove(ctx context.Context, sale *domain.Sale) error {
	tx, err := r.u.begin(ctx)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = ?`, sale.ID()); err != nil {
		return fmt.Errorf("delete sale items: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, sale.ID())
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	r.u.addAffected(result)
	r.u.markRemoved(sale.ID())
	return nil
}

const saleViewQuery = `
	SELECT s.id, s.status, s.customer_id, c.name, s.branch_id, b.name, s.created_at, s.updated_at
	FROM sales s
	JOIN customers c ON c.id = s.customer_id
	JOIN branches b ON b.id = s.branch_id`

func (r *saleRepository) GetView(ctx context.Context, id int64) (*domain.SaleView, error) {
	views, err := r.queryViews(ctx, saleViewQuery+` WHERE s.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, nil
	}
	return &views[0], nil
}

func (r *saleRepository) List(ctx context.Context, filter domain.SaleFilter) ([]domain.SaleView, error) {
	filter = filter.Normalize()
	return r.queryViews(ctx, saleViewQuery+`
		WHERE (? = 0 OR s.id = ?) AND c.name LIKE ? AND b.name LIKE ?
		ORDER BY s.id
		LIMIT ? OFFSET ?`,
		filter.SaleID, filter.SaleID, likePattern(filter.CustomerName), likePattern(filter.BranchName),
		filter.PageSize, filter.Offset(),
	)
}

func (r *saleRepository) queryViews(ctx context.Context, query string, args ...any) ([]domain.SaleView, error) {
	var views []domain.SaleView
	err := r.u.read(func(q queryer) error {
		var err error
		if views, err = scanViews(ctx, q, query, args...); err != nil || len(views) == 0 {
			return err
		}
		return attachItemViews(ctx, q, views)
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

func scanViews(ctx context.Context, q queryer, query string, args ...any) ([]domain.SaleView, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	views := []domain.SaleView{}
	for rows.Next() {
		var (
			v      domain.SaleView
			status string
		)
		if err := rows.Scan(&v.ID, &status, &v.CustomerID, &v.CustomerName, &v.BranchID, &v.BranchName, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		v.Status = domain.SaleStatus(status)
		v.TotalAmount = decimal.Zero
		v.Items = []domain.SaleItemView{}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return views, nil
}

func attachItemViews(ctx context.Context, q queryer, views []domain.SaleView) error {
	index := make(map[int64]int, len(views))
	args := make([]any, 0, len(views))
	for i, v := range views {
		index[v.ID] = i
		args = append(args, v.ID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT i.id, i.sale_id, i.product_id, p.name, i.quantity, i.unit_price, i.discount
		FROM sale_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.sale_id IN (`+placeholders(len(args))+`)
		ORDER BY i.id`, args...)
	if err != nil {
		return fmt.Errorf("query sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.SaleItemView
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.Discount); err != nil {
			return fmt.Errorf("scan sale item: %w", err)
		}
		views[index[item.SaleID]].AppendItem(item)
	}
	return rows.Err()
}

func loadItems(ctx context.Context, tx *sql.Tx, saleID int64) ([]domain.SaleItem, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, product_id, quantity, unit_price
		FROM sale_items WHERE sale_id = ? ORDER BY id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("query sale items: %w", err)
	}
	defer rows.Close()

	var items []domain.SaleItem
	for rows.Next() {
		var (
			id, productID int64
			quantity      int
			unitPrice     decimal.Decimal
		)
		if err := rows.Scan(&id, &productID, &quantity, &unitPrice); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		item, err := domain.RestoreSaleItem(id, saleID, productID, quantity, unitPrice)
		if err != nil {
			return nil, fmt.Errorf("restore sale item %d: %w", id, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func insertItems(ctx context.Context, tx *sql.Tx, sale *domain.Sale) (int64, error) {
	var affected int64
	for i, item := range sale.Items() {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, discount, total_price)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sale.ID(), item.ProductID(), item.Quantity(), item.UnitPrice(), item.Discount(), item.TotalPrice(),
		)
		if err != nil {
			return 0, fmt.Errorf("insert sale item: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("sale item id: %w", err)
		}
		sale.AssignItemID(i, id)
		affected++
	}
	return affected, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
