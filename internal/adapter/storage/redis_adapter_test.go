package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sales/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func testView(id int64) domain.SaleView {
	view := domain.SaleView{
		ID:           id,
		Status:       domain.SaleStatusPending,
		CustomerID:   uuid.New(),
		CustomerName: "ALICE",
		BranchID:     uuid.New(),
		BranchName:   "DOWNTOWN",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	view.AppendItem(domain.SaleItemView{ID: 1, SaleID: id, ProductID: 1, ProductName: "BEER", Quantity: 5, UnitPrice: decimal.RequireFromString("2.00"), Discount: decimal.RequireFromString("1.00")})
	return view
}

func TestSaleView_SetGet(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	// Setup
	client.Del(ctx, saleViewKey(9001), saleVersionKey(9001))

	view := testView(9001)
	if err := adapter.SetSaleView(ctx, view, 0); err != nil {
		t.Fatalf("SetSaleView failed: %v", err)
	}

	got, err := adapter.GetSaleView(ctx, 9001)
	if err != nil {
		t.Fatalf("GetSaleView failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached view, got nil")
	}
	if got.CustomerName != "ALICE" || len(got.Items) != 1 {
		t.Errorf("unexpected view: %+v", got)
	}
	if !got.TotalAmount.Equal(decimal.RequireFromString("9.00")) {
		t.Errorf("expected total 9.00, got %s", got.TotalAmount)
	}

	ttl := client.TTL(ctx, saleViewKey(9001)).Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected ttl within a minute, got %v", ttl)
	}
}

func TestSaleView_Miss(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, 0)

	// Setup - ensure key doesn't exist
	client.Del(ctx, saleViewKey(9002))

	got, err := adapter.GetSaleView(ctx, 9002)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected nil on cache miss")
	}
}

func TestInvalidateSale(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	version, err := adapter.SaleViewVersion(ctx, 9003)
	if err != nil {
		t.Fatalf("SaleViewVersion failed: %v", err)
	}
	adapter.SetSaleView(ctx, testView(9003), version)
	if err := adapter.InvalidateSale(ctx, 9003); err != nil {
		t.Fatalf("InvalidateSale failed: %v", err)
	}

	if n := client.Exists(ctx, saleViewKey(9003)).Val(); n != 0 {
		t.Error("expected key to be removed")
	}
	bumped, _ := adapter.SaleViewVersion(ctx, 9003)
	if bumped != version+1 {
		t.Errorf("expected version %d, got %d", version+1, bumped)
	}
}

func TestSetSaleView_DropsViewLoadedBeforeInvalidation(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	// Setup
	client.Del(ctx, saleViewKey(9004), saleVersionKey(9004))

	version, err := adapter.SaleViewVersion(ctx, 9004)
	if err != nil {
		t.Fatalf("SaleViewVersion failed: %v", err)
	}

	// A mutation commits while the reader still holds the old view
	if err := adapter.InvalidateSale(ctx, 9004); err != nil {
		t.Fatalf("InvalidateSale failed: %v", err)
	}
	if err := adapter.SetSaleView(ctx, testView(9004), version); err != nil {
		t.Fatalf("SetSaleView failed: %v", err)
	}

	// Verify
	if got, _ := adapter.GetSaleView(ctx, 9004); got != nil {
		t.Error("expected stale view to be dropped")
	}

	current, _ := adapter.SaleViewVersion(ctx, 9004)
	if err := adapter.SetSaleView(ctx, testView(9004), current); err != nil {
		t.Fatalf("SetSaleView failed: %v", err)
	}
	if got, _ := adapter.GetSaleView(ctx, 9004); got == nil {
		t.Error("expected view written under the current version")
	}

	// Cleanup
	client.Del(ctx, saleViewKey(9004), saleVersionKey(9004))
}

func TestPublishEvent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	sub := client.Subscribe(ctx, "sales.events.test")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	n, err := adapter.PublishEvent(ctx, "sales.events.test", []byte(`{"event":"sale.created"}`))
	if err != nil {
		t.Fatalf("PublishEvent failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 receiver, got %d", n)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Payload != `{"event":"sale.created"}` {
			t.Errorf("unexpected payload: %s", msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Error("timed out waiting for message")
	}
}
