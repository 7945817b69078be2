package fvg

import (
	"sort"

	"github.com/skalibog/smca/internal/config"
	"github.com/skalibog/smca/pkg/models"
)

// Analyzer реализует детектор имбалансов (Fair Value Gap)
type Analyzer struct {
	config config.FVGConfig
}

// NewAnalyzer создает новый детектор имбалансов
func NewAnalyzer(cfg config.FVGConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Detect ищет трехсвечные имбалансы и отслеживает их заполнение.
// Порядок фильтрации фиксирован: сортировка по размеру, затем отсечение
// по возрасту, затем отбрасывание заполненных.
func (a *Analyzer) Detect(candles []models.Candle) []models.FairValueGap {
	if len(candles) < 3 {
		return nil
	}

	candles = models.NormalizeCandles(candles)
	var gaps []models.FairValueGap

	for i := 1; i < len(candles)-1; i++ {
		prev := candles[i-1]
		next := candles[i+1]

		// Бычий имбаланс: максимум левой свечи ниже минимума правой
		if prev.High < next.Low && prev.High > 0 {
			sizePercent := (next.Low - prev.High) / prev.High * 100
			if sizePercent >= a.config.MinGapSizePercent {
				gap := models.FairValueGap{
					Direction:   models.Bullish,
					Top:         next.Low,
					Bottom:      prev.High,
					SizePercent: sizePercent,
					CandleIndex: i,
					StartTime:   candles[i].OpenTime,
					Age:         len(candles) - 1 - i,
				}
				a.trackFill(candles, &gap)
				gaps = append(gaps, gap)
			}
		}

		// Медвежий имбаланс: минимум левой свечи выше максимума правой
		if prev.Low > next.High && next.High > 0 {
			sizePercent := (prev.Low - next.High) / next.High * 100
			if sizePercent >= a.config.MinGapSizePercent {
				gap := models.FairValueGap{
					Direction:   models.Bearish,
					Top:         prev.Low,
					Bottom:      next.High,
					SizePercent: sizePercent,
					CandleIndex: i,
					StartTime:   candles[i].OpenTime,
					Age:         len(candles) - 1 - i,
				}
				a.trackFill(candles, &gap)
				gaps = append(gaps, gap)
			}
		}
	}

	// Сортировка по размеру имбаланса по убыванию
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].SizePercent > gaps[j].SizePercent
	})

	// Фильтрация по возрасту
	filtered := gaps[:0]
	for _, gap := range gaps {
		if gap.Age <= a.config.MaxAgeCandles {
			filtered = append(filtered, gap)
		}
	}
	gaps = filtered

	// Отбрасывание заполненных, если они не запрошены
	if !a.config.ShowFilled {
		fresh := gaps[:0]
		for _, gap := range gaps {
			if !gap.IsFilled {
				fresh = append(fresh, gap)
			}
		}
		gaps = fresh
	}

	return gaps
}

// trackFill ищет первую свечу, закрывшую имбаланс.
// Бычий имбаланс заполнен, когда минимум последующей свечи дошел до нижней
// границы; медвежий - когда максимум дошел до верхней. Первое касание
// фиксируется, дальнейший просмотр прекращается.
func (a *Analyzer) trackFill(candles []models.Candle, gap *models.FairValueGap) {
	for i := gap.CandleIndex + 2; i < len(candles); i++ {
		switch gap.Direction {
		case models.Bullish:
			if candles[i].Low <= gap.Bottom {
				gap.IsFilled = true
				gap.FilledAt = candles[i].OpenTime
				return
			}
		case models.Bearish:
			if candles[i].High >= gap.Top {
				gap.IsFilled = true
				gap.FilledAt = candles[i].OpenTime
				return
			}
		}
	}
}
