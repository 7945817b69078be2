package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/smca/internal/analysis/fvg"
	"github.com/skalibog/smca/internal/analysis/orderblock"
	signalengine "github.com/skalibog/smca/internal/analysis/signal"
	"github.com/skalibog/smca/internal/analysis/stophunt"
	"github.com/skalibog/smca/internal/analysis/structure"
	"github.com/skalibog/smca/internal/config"
	"github.com/skalibog/smca/internal/exchange"
	"github.com/skalibog/smca/internal/scanner"
	"github.com/skalibog/smca/internal/storage"
	"github.com/skalibog/smca/pkg/logger"
)

func main() {
	logger.Init()
	defer logger.GetLogger().Sync()

	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	flag.Parse()

	logger.Info("Проверка наличия файла конфигурации", zap.String("path", *configPath))
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Fatal("Файл конфигурации не найден", zap.String("path", *configPath))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Хранилище опционально: без него сигналы только логируются
	var store storage.Storage
	if cfg.Storage.URL != "" {
		influx, err := storage.NewInfluxDBStorage(cfg.Storage)
		if err != nil {
			logger.Fatal("Ошибка инициализации хранилища", zap.Error(err))
		}
		defer influx.Close()
		store = influx
	}

	client, err := exchange.NewBinanceClient(cfg.Binance)
	if err != nil {
		logger.Fatal("Ошибка инициализации клиента биржи", zap.Error(err))
	}

	engine := signalengine.NewEngine(cfg.Analysis.Signal)
	detectors := scanner.Detectors{
		Structure:  structure.NewAnalyzer(cfg.Analysis.Structure),
		FVG:        fvg.NewAnalyzer(cfg.Analysis.FVG),
		OrderBlock: orderblock.NewAnalyzer(cfg.Analysis.OrderBlock),
		StopHunt:   stophunt.NewAnalyzer(cfg.Analysis.StopHunt),
	}
	scan := scanner.New(cfg.Scanner, cfg.Trading, client, engine, detectors, store)

	// Обработка сигналов завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Завершение работы...")
		scan.Stop()
		cancel()
	}()

	ticker := time.NewTicker(time.Duration(cfg.Scanner.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	logger.Info("Сканер запущен",
		zap.Strings("symbols", cfg.Trading.Symbols),
		zap.String("interval", cfg.Trading.Interval))

	for {
		signals := scan.Scan(ctx)
		logger.Info("Проход завершен", zap.Int("signals", len(signals)))
		for _, s := range signals {
			logger.Info("Сигнал",
				zap.String("pair", s.Pair),
				zap.String("direction", string(s.Direction)),
				zap.Float64("entry", s.EntryPoint),
				zap.Float64("stop", s.StopLoss),
				zap.Float64("target", s.TakeProfit),
				zap.Float64("confidence", s.Confidence),
				zap.Strings("reasoning", s.Reasoning))
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
