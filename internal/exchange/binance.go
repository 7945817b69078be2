package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/skalibog/smca/internal/config"
	"github.com/skalibog/smca/pkg/logger"
	"github.com/skalibog/smca/pkg/models"
)

// maxFetchAttempts предел повторов сетевых запросов
const maxFetchAttempts = 3

// BinanceClient клиент для взаимодействия с Binance
type BinanceClient struct {
	futures *futures.Client
	spot    *binance.Client
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig) (*BinanceClient, error) {
	futuresClient := futures.NewClient(cfg.APIKey, cfg.APISecret)
	spotClient := binance.NewClient(cfg.APIKey, cfg.APISecret)

	if cfg.Testnet {
		futures.UseTestnet = true
		// Для спот-клиента нужно изменить базовый URL
		spotClient.SetApiEndpoint("https://testnet.binance.vision")
	}

	return &BinanceClient{
		futures: futuresClient,
		spot:    spotClient,
	}, nil
}

// GetKlines получает исторические свечи с повторами при сетевых сбоях
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	var klines []*futures.Kline
	err := c.withRetry(ctx, "klines", symbol, func() error {
		var err error
		klines, err = c.futures.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей: %w", err)
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		candle, err := convertKline(symbol, interval, k)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора свечи: %w", err)
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// GetOrderBook получает стакан заявок
func (c *BinanceClient) GetOrderBook(ctx context.Context, symbol string, limit int) (*models.OrderBook, error) {
	var depth *futures.DepthResponse
	err := c.withRetry(ctx, "depth", symbol, func() error {
		var err error
		depth, err = c.futures.NewDepthService().
			Symbol(symbol).
			Limit(limit).
			Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения стакана: %w", err)
	}

	orderBook := &models.OrderBook{
		Symbol:    symbol,
		Timestamp: time.Now(),
		Bids:      make([]models.OrderBookLevel, len(depth.Bids)),
		Asks:      make([]models.OrderBookLevel, len(depth.Asks)),
	}

	for i, bid := range depth.Bids {
		orderBook.Bids[i] = models.OrderBookLevel{
			Price:  bid.Price,
			Amount: bid.Quantity,
		}
	}

	for i, ask := range depth.Asks {
		orderBook.Asks[i] = models.OrderBookLevel{
			Price:  ask.Price,
			Amount: ask.Quantity,
		}
	}

	return orderBook, nil
}

// withRetry повторяет запрос с экспоненциальной задержкой.
// Повторы живут здесь, а не в детекторах: чистые вычисления не ретраятся.
func (c *BinanceClient) withRetry(ctx context.Context, op, symbol string, fn func() error) error {
	b := &backoff.Backoff{
		Min:    250 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		logger.Warn("Повтор запроса к бирже",
			zap.String("op", op),
			zap.String("symbol", symbol),
			zap.Int("attempt", attempt),
			zap.Error(err))

		// После последней попытки ждать нечего
		if attempt == maxFetchAttempts {
			return err
		}

		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// convertKline преобразует свечу биржи во внутреннюю модель
func convertKline(symbol, interval string, k *futures.Kline) (models.Candle, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return models.Candle{}, err
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return models.Candle{}, err
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return models.Candle{}, err
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return models.Candle{}, err
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return models.Candle{}, err
	}

	return models.Candle{
		Symbol:    symbol,
		Interval:  interval,
		OpenTime:  time.Unix(k.OpenTime/1000, 0),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		CloseTime: time.Unix(k.CloseTime/1000, 0),
	}, nil
}
