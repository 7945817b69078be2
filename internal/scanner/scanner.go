package scanner

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/skalibog/smca/internal/analysis/fvg"
	"github.com/skalibog/smca/internal/analysis/orderblock"
	"github.com/skalibog/smca/internal/analysis/signal"
	"github.com/skalibog/smca/internal/analysis/stophunt"
	"github.com/skalibog/smca/internal/analysis/structure"
	"github.com/skalibog/smca/internal/config"
	"github.com/skalibog/smca/internal/storage"
	"github.com/skalibog/smca/pkg/logger"
	"github.com/skalibog/smca/pkg/models"
)

// MarketData поставщик рыночных данных для сканера
type MarketData interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
	GetOrderBook(ctx context.Context, symbol string, limit int) (*models.OrderBook, error)
}

// Detectors набор автономных детекторов для отчета по паре
type Detectors struct {
	Structure  *structure.Analyzer
	FVG        *fvg.Analyzer
	OrderBlock *orderblock.Analyzer
	StopHunt   *stophunt.Analyzer
}

// Scanner последовательно обходит торговые пары и собирает сигналы.
// Пары обходятся по одной: получение данных - медленная внешняя операция,
// и параллельный обход раздувал бы нагрузку на биржу.
type Scanner struct {
	config    config.ScannerConfig
	trading   config.TradingConfig
	market    MarketData
	engine    *signal.Engine
	detectors Detectors
	store     storage.Storage
	stopped   atomic.Bool
}

// New создает новый сканер. Хранилище опционально: без него сигналы
// просто не персистятся.
func New(cfg config.ScannerConfig, trading config.TradingConfig, market MarketData, engine *signal.Engine, detectors Detectors, store storage.Storage) *Scanner {
	return &Scanner{
		config:    cfg,
		trading:   trading,
		market:    market,
		engine:    engine,
		detectors: detectors,
		store:     store,
	}
}

// Stop кооперативно останавливает обход. Флаг проверяется в начале
// каждой итерации, текущая пара дорабатывается.
func (s *Scanner) Stop() {
	s.stopped.Store(true)
}

// Scan обходит перемешанный список пар и возвращает собранные сигналы.
// Обход завершается по достижении целевого количества, по флагу остановки
// или по отмене контекста. Сбой одной пары логируется и не прерывает обход.
func (s *Scanner) Scan(ctx context.Context) []*models.Signal {
	pairs := make([]string, len(s.trading.Symbols))
	copy(pairs, s.trading.Symbols)
	rand.Shuffle(len(pairs), func(i, j int) {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	})

	var signals []*models.Signal

	for _, pair := range pairs {
		if s.stopped.Load() || ctx.Err() != nil {
			logger.Info("Сканирование остановлено", zap.Int("signals", len(signals)))
			break
		}
		if s.config.TargetSignals > 0 && len(signals) >= s.config.TargetSignals {
			break
		}

		sig, err := s.scanPair(ctx, pair)
		if err != nil {
			if errors.Is(err, signal.ErrNoPattern) {
				logger.Debug("Паттерн не найден", zap.String("pair", pair))
				continue
			}
			// Одна плохая пара не должна срывать весь проход
			logger.Warn("Ошибка сканирования пары", zap.String("pair", pair), zap.Error(err))
			continue
		}

		signals = append(signals, sig)
		logger.Info("Получен сигнал",
			zap.String("pair", pair),
			zap.String("direction", string(sig.Direction)),
			zap.Float64("confidence", sig.Confidence))
	}

	return signals
}

// scanPair получает данные одной пары и синтезирует сигнал
func (s *Scanner) scanPair(ctx context.Context, pair string) (*models.Signal, error) {
	candles, err := s.market.GetKlines(ctx, pair, s.trading.Interval, s.trading.Limit)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.SaveCandles(ctx, candles); err != nil {
			logger.Warn("Не удалось сохранить свечи", zap.String("pair", pair), zap.Error(err))
		}
	}

	s.logStructureReport(pair, candles)

	// Стакан необязателен: без него сигнал просто не корректируется
	var book *models.OrderBook
	if s.config.OrderBookDepth > 0 {
		book, err = s.market.GetOrderBook(ctx, pair, s.config.OrderBookDepth)
		if err != nil {
			logger.Warn("Стакан недоступен, корректировка пропущена", zap.String("pair", pair), zap.Error(err))
			book = nil
		}
	}

	sig, err := s.engine.Synthesize(pair, candles, book)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.SaveSignal(ctx, sig); err != nil {
			logger.Warn("Не удалось сохранить сигнал", zap.String("pair", pair), zap.Error(err))
		}
	}

	return sig, nil
}

// logStructureReport прогоняет автономные детекторы и пишет сводку по паре.
// Сводка собирается только при полном наборе детекторов.
func (s *Scanner) logStructureReport(pair string, candles []models.Candle) {
	d := s.detectors
	if d.Structure == nil || d.FVG == nil || d.OrderBlock == nil || d.StopHunt == nil {
		return
	}

	structureRes := d.Structure.Detect(candles)
	gaps := d.FVG.Detect(candles)
	blocks := d.OrderBlock.Detect(candles)
	hunts := d.StopHunt.Detect(candles)

	logger.Debug("Структура рынка",
		zap.String("pair", pair),
		zap.Int("swings", len(structureRes.SwingPoints)),
		zap.Int("segments", len(structureRes.Segments)),
		zap.Int("shifts", len(structureRes.Shifts)),
		zap.Int("fvg", len(gaps)),
		zap.Int("orderblocks", len(blocks)),
		zap.Int("stophunts", len(hunts.Events)),
		zap.String("stophunt_summary", hunts.Summary))
}
