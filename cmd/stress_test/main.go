package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/sales/internal/adapter/storage"
	"github.com/rl1809/sales/internal/config"
	"github.com/rl1809/sales/internal/core/service"
)

const (
	totalRequests  = 50
	quantity       = 10
	updateQuantity = 5
	maxOpenConns   = 10 // well below the number of concurrent updates
	updateTimeout  = 30 * time.Second
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(maxOpenConns)
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	logger := zap.NewNop()
	catalog := service.NewCatalogService(mysqlAdapter, nil, nil, logger)
	sales := service.NewSaleService(mysqlAdapter, nil, nil, nil, logger)

	// Seed catalog
	customerID, err := catalog.CreateCustomer(ctx, "stress customer")
	if err != nil {
		log.Fatalf("failed to create customer: %v", err)
	}
	branchID, err := catalog.CreateBranch(ctx, "stress branch")
	if err != nil {
		log.Fatalf("failed to create branch: %v", err)
	}
	otherBranchID, err := catalog.CreateBranch(ctx, "stress branch b")
	if err != nil {
		log.Fatalf("failed to create branch: %v", err)
	}
	productID, err := catalog.CreateProduct(ctx, "stress product", decimal.RequireFromString("20.00"))
	if err != nil {
		log.Fatalf("failed to create product: %v", err)
	}

	// Phase 1: concurrent sale creation
	var created atomic.Int32
	var wg sync.WaitGroup
	ids := make(chan int64, totalRequests)
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := sales.CreateSale(ctx, service.CreateSaleCommand{
				CustomerID: customerID,
				BranchID:   branchID,
				Items:      []service.SaleItemInput{{ProductID: productID, Quantity: quantity}},
			})
			if err != nil {
				log.Printf("create failed: %v", err)
				return
			}
			created.Add(1)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)
	createElapsed := time.Since(start)

	// Phase 2: race cancellations of a single sale
	var target int64
	for id := range ids {
		target = id
		break
	}

	var cancelled, conflicts atomic.Int32
	start = time.Now()
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := sales.CancelSale(ctx, target)
			switch {
			case err == nil && ok:
				cancelled.Add(1)
			case errors.Is(err, service.ErrSaleConflict):
				conflicts.Add(1)
			default:
				log.Printf("cancel failed: ok=%v err=%v", ok, err)
			}
		}()
	}
	wg.Wait()
	cancelElapsed := time.Since(start)

	// Phase 3: two concurrent updates per remaining sale, moving each to
	// another branch. Every update locks its sale and then looks up the
	// branch and products, with far fewer connections than updates.
	var updated, updateFailures atomic.Int32
	var remaining []int64
	for id := range ids {
		remaining = append(remaining, id)
	}

	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()
	start = time.Now()
	for _, id := range remaining {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				ok, err := sales.UpdateSale(updateCtx, id, service.UpdateSaleCommand{
					SaleID:     id,
					CustomerID: customerID,
					BranchID:   otherBranchID,
					Items:      []service.SaleItemInput{{ProductID: productID, Quantity: updateQuantity}},
				})
				if err != nil || !ok {
					updateFailures.Add(1)
					log.Printf("update of sale %d failed: ok=%v err=%v", id, ok, err)
					return
				}
				updated.Add(1)
			}(id)
		}
	}
	wg.Wait()
	updateElapsed := time.Since(start)

	view, err := sales.GetSale(ctx, target)
	if err != nil {
		log.Fatalf("failed to fetch sale %d: %v", target, err)
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Sales Created:    %d (%v)\n", created.Load(), createElapsed)
	fmt.Printf("Cancel Winners:   %d\n", cancelled.Load())
	fmt.Printf("Cancel Conflicts: %d (%v)\n", conflicts.Load(), cancelElapsed)
	fmt.Printf("Updates:          %d ok, %d failed (%v)\n", updated.Load(), updateFailures.Load(), updateElapsed)
	fmt.Printf("Sale %d Total:    %s\n", target, view.TotalAmount.StringFixed(2))
	fmt.Println("==========================================")

	if created.Load() == totalRequests {
		fmt.Println("PASS: every sale was created")
	} else {
		fmt.Printf("FAIL: expected %d sales, got %d\n", totalRequests, created.Load())
	}

	if cancelled.Load() == 1 && conflicts.Load() == totalRequests-1 {
		fmt.Println("PASS: exactly one cancellation succeeded")
	} else {
		fmt.Printf("FAIL: expected 1 winner/%d conflicts, got %d/%d\n", totalRequests-1, cancelled.Load(), conflicts.Load())
	}

	if int(updated.Load()) == 2*len(remaining) {
		fmt.Printf("PASS: %d concurrent updates finished on %d connections\n", updated.Load(), maxOpenConns)
	} else {
		fmt.Printf("FAIL: expected %d updates, got %d\n", 2*len(remaining), updated.Load())
	}

	if view.TotalAmount.Equal(decimal.RequireFromString("160")) {
		fmt.Println("PASS: 20% discount applied to 10 units at 20.00")
	} else {
		fmt.Printf("FAIL: expected total 160.00, got %s\n", view.TotalAmount.StringFixed(2))
	}
}
