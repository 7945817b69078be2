package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/skalibog/smca/pkg/logger"
	"go.uber.org/zap"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	Binance  BinanceConfig  `yaml:"binance"`
	Trading  TradingConfig  `yaml:"trading"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Storage  StorageConfig  `yaml:"storage"`
	Scanner  ScannerConfig  `yaml:"scanner"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
}

// TradingConfig содержит настройки торговли
type TradingConfig struct {
	Symbols  []string `yaml:"symbols"`
	Interval string   `yaml:"interval"`
	Limit    int      `yaml:"candle_limit"`
}

// AnalysisConfig содержит настройки детекторов
type AnalysisConfig struct {
	Structure  StructureConfig  `yaml:"structure"`
	FVG        FVGConfig        `yaml:"fvg"`
	OrderBlock OrderBlockConfig `yaml:"orderblock"`
	StopHunt   StopHuntConfig   `yaml:"stophunt"`
	Signal     SignalConfig     `yaml:"signal"`
}

// StructureConfig настройки детектора свингов и структуры
type StructureConfig struct {
	Lookback int `yaml:"lookback"`
	// MinSwingStrength зарезервирован под фильтрацию слабых свингов
	MinSwingStrength float64 `yaml:"min_swing_strength"`
}

// FVGConfig настройки детектора имбалансов
type FVGConfig struct {
	MinGapSizePercent float64 `yaml:"min_gap_size_percent"`
	MaxAgeCandles     int     `yaml:"max_age_candles"`
	ShowFilled        bool    `yaml:"show_filled"`
}

// OrderBlockConfig настройки детектора ордер-блоков
type OrderBlockConfig struct {
	MinImpulseStrength float64 `yaml:"min_impulse_strength"`
	MaxBlocks          int     `yaml:"max_blocks"`
	DisplayFreshOnly   bool    `yaml:"display_fresh_only"`
}

// StopHuntConfig настройки детектора сбора стопов
type StopHuntConfig struct {
	MinWickRatio        float64 `yaml:"min_wick_ratio"`
	MinBodyToRangeRatio float64 `yaml:"min_body_to_range_ratio"`
}

// SignalConfig настройки движка синтеза сигналов
type SignalConfig struct {
	// UseOrderBook включает корректировку уверенности по плитам стакана
	UseOrderBook bool `yaml:"use_orderbook"`
	// WallSizeFactor во сколько раз плита должна превышать средний объем уровня
	WallSizeFactor float64 `yaml:"wall_size_factor"`
	// ATRPeriod период ATR для расчета стопов и целей
	ATRPeriod int `yaml:"atr_period"`
}

// StorageConfig настройки хранения данных
type StorageConfig struct {
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// ScannerConfig настройки сканера пар
type ScannerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	TargetSignals   int `yaml:"target_signals"`
	OrderBookDepth  int `yaml:"orderbook_depth"`
}

// Load загружает конфигурацию из файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}

	logger.Debug("Загружена конфигурация", zap.String("path", path), zap.Any("config", cfg))
	logger.Info("Загружена конфигурация", zap.Any("Symbols", cfg.Trading.Symbols))
	return cfg, nil
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		Trading: TradingConfig{
			Interval: "1h",
			Limit:    100,
		},
		Analysis: AnalysisConfig{
			Structure: StructureConfig{
				Lookback: 5,
			},
			FVG: FVGConfig{
				MinGapSizePercent: 0.1,
				MaxAgeCandles:     50,
			},
			OrderBlock: OrderBlockConfig{
				MinImpulseStrength: 1.5,
				MaxBlocks:          5,
			},
			StopHunt: StopHuntConfig{
				MinWickRatio:        2.0,
				MinBodyToRangeRatio: 0.3,
			},
			Signal: SignalConfig{
				UseOrderBook:   true,
				WallSizeFactor: 3.0,
				ATRPeriod:      14,
			},
		},
		Scanner: ScannerConfig{
			IntervalSeconds: 60,
			TargetSignals:   3,
			OrderBookDepth:  20,
		},
	}
}
