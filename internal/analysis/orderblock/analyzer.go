package orderblock

import (
	"math"
	"sort"

	"github.com/skalibog/smca/internal/config"
	"github.com/skalibog/smca/pkg/models"
)

// Analyzer реализует детектор ордер-блоков
type Analyzer struct {
	config config.OrderBlockConfig
}

// NewAnalyzer создает новый детектор ордер-блоков
func NewAnalyzer(cfg config.OrderBlockConfig) *Analyzer {
	if cfg.MaxBlocks <= 0 {
		cfg.MaxBlocks = 5
	}
	return &Analyzer{
		config: cfg,
	}
}

// Detect ищет свечи перед сильным направленным импульсом.
// Зоной считается свеча, непосредственно предшествующая импульсу: для бычьего
// блока верх зоны берется по фитилю на стороне импульса, для медвежьего -
// по телу (асимметрия намеренная).
func (a *Analyzer) Detect(candles []models.Candle) []models.OrderBlockZone {
	if len(candles) < 3 {
		return nil
	}

	candles = models.NormalizeCandles(candles)
	var blocks []models.OrderBlockZone

	for i := 1; i < len(candles)-1; i++ {
		current := candles[i]
		next := candles[i+1]

		currentRange := current.Range()
		if currentRange == 0 {
			continue
		}

		nextBody := math.Abs(next.Close - next.Open)
		if nextBody <= currentRange*a.config.MinImpulseStrength {
			continue
		}

		zone := candles[i-1]
		block := models.OrderBlockZone{
			Strength:    nextBody / currentRange,
			CandleIndex: i - 1,
			Time:        zone.OpenTime,
			Age:         len(candles) - 1 - (i - 1),
		}

		if next.Bullish() {
			block.Direction = models.Bullish
			block.Top = zone.High
			block.Bottom = math.Min(zone.Open, zone.Close)
		} else {
			block.Direction = models.Bearish
			block.Top = math.Max(zone.Open, zone.Close)
			block.Bottom = zone.Low
		}

		a.trackTest(candles, &block)
		blocks = append(blocks, block)
	}

	// Сортировка по силе импульса по убыванию
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Strength > blocks[j].Strength
	})

	// Отбрасывание протестированных блоков, если нужны только свежие
	if a.config.DisplayFreshOnly {
		fresh := blocks[:0]
		for _, block := range blocks {
			if !block.IsTested {
				fresh = append(fresh, block)
			}
		}
		blocks = fresh
	}

	if len(blocks) > a.config.MaxBlocks {
		blocks = blocks[:a.config.MaxBlocks]
	}

	return blocks
}

// trackTest ищет первый возврат цены в зону блока.
// Бычий блок протестирован, когда минимум последующей свечи вошел в зону,
// медвежий - когда максимум. Засчитывается только первое касание.
func (a *Analyzer) trackTest(candles []models.Candle, block *models.OrderBlockZone) {
	for i := block.CandleIndex + 2; i < len(candles); i++ {
		switch block.Direction {
		case models.Bullish:
			if candles[i].Low <= block.Top && candles[i].Low >= block.Bottom {
				block.IsTested = true
				block.TestedAt = candles[i].OpenTime
				return
			}
		case models.Bearish:
			if candles[i].High >= block.Bottom && candles[i].High <= block.Top {
				block.IsTested = true
				block.TestedAt = candles[i].OpenTime
				return
			}
		}
	}
}
