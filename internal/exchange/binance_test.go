package exchange

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetryReturnsLastError(t *testing.T) {
	c := &BinanceClient{}
	wantErr := errors.New("биржа недоступна")

	calls := 0
	start := time.Now()
	err := c.withRetry(context.Background(), "klines", "BTCUSDT", func() error {
		calls++
		return wantErr
	})
	elapsed := time.Since(start)

	if !errors.Is(err, wantErr) {
		t.Fatalf("ожидалась ошибка последней попытки, получено %v", err)
	}
	if calls != maxFetchAttempts {
		t.Errorf("ожидалось %d попыток, сделано %d", maxFetchAttempts, calls)
	}
	// Между попытками ровно две паузы, после последней возврат без ожидания
	if elapsed >= 800*time.Millisecond {
		t.Errorf("после последней попытки не должно быть паузы, прошло %v", elapsed)
	}
}

func TestWithRetryStopsOnSuccess(t *testing.T) {
	c := &BinanceClient{}

	calls := 0
	err := c.withRetry(context.Background(), "depth", "BTCUSDT", func() error {
		calls++
		if calls == 1 {
			return errors.New("временный сбой")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if calls != 2 {
		t.Errorf("ожидались две попытки, сделано %d", calls)
	}
}

func TestWithRetryContextCancelled(t *testing.T) {
	c := &BinanceClient{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := c.withRetry(ctx, "klines", "BTCUSDT", func() error {
		calls++
		return errors.New("временный сбой")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ожидалась отмена контекста, получено %v", err)
	}
	if calls != 1 {
		t.Errorf("после отмены повторов быть не должно, сделано %d", calls)
	}
}
