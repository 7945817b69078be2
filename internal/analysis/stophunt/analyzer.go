package stophunt

import (
	"math"

	"github.com/skalibog/smca/internal/config"
	"github.com/skalibog/smca/pkg/models"
)

// Analyzer реализует детектор сбора стопов (длинных фитилей)
type Analyzer struct {
	config config.StopHuntConfig
}

// Result события сбора стопов и сводная рекомендация
type Result struct {
	Events  []models.StopHuntEvent
	Summary string
}

// NewAnalyzer создает новый детектор сбора стопов
func NewAnalyzer(cfg config.StopHuntConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Detect ищет свечи с маленьким телом и длинным фитилем.
// Серия уже обрезана вызывающей стороной до нужного окна. Одна свеча может
// дать события с обеих сторон: проверки фитилей независимы.
func (a *Analyzer) Detect(candles []models.Candle) Result {
	if len(candles) == 0 {
		return Result{Summary: summaryNone}
	}

	candles = models.NormalizeCandles(candles)
	var events []models.StopHuntEvent

	for i, c := range candles {
		body := c.Body()
		totalRange := c.Range()

		// Доджи пропускаются: отношение фитиля к нулевому телу не определено
		if body == 0 || totalRange == 0 {
			continue
		}

		bodyRatio := body / totalRange
		if bodyRatio >= a.config.MinBodyToRangeRatio {
			continue
		}

		lowerWick := math.Min(c.Open, c.Close) - c.Low
		lowerWickRatio := lowerWick / body
		if lowerWickRatio >= a.config.MinWickRatio {
			events = append(events, models.StopHuntEvent{
				Side:        models.LowerHunt,
				CandleIndex: i,
				Time:        c.OpenTime,
				Price:       c.Low,
				WickRatio:   lowerWickRatio,
				BodyRatio:   bodyRatio,
			})
		}

		upperWick := c.High - math.Max(c.Open, c.Close)
		upperWickRatio := upperWick / body
		if upperWickRatio >= a.config.MinWickRatio {
			events = append(events, models.StopHuntEvent{
				Side:        models.UpperHunt,
				CandleIndex: i,
				Time:        c.OpenTime,
				Price:       c.High,
				WickRatio:   upperWickRatio,
				BodyRatio:   bodyRatio,
			})
		}
	}

	return Result{
		Events:  events,
		Summary: a.summarize(events, len(candles)),
	}
}

// Тексты сводных рекомендаций
const (
	summaryRecentLower = "НЕДАВНИЙ СБОР СТОПОВ СНИЗУ - ВОЗМОЖЕН ОТСКОК ВВЕРХ"
	summaryRecentUpper = "НЕДАВНИЙ СБОР СТОПОВ СВЕРХУ - ВОЗМОЖЕН ОТКАТ ВНИЗ"
	summaryLowerBias   = "ЛИКВИДНОСТЬ ЧАЩЕ СНИМАЮТ ПОД МИНИМУМАМИ"
	summaryUpperBias   = "ЛИКВИДНОСТЬ ЧАЩЕ СНИМАЮТ НАД МАКСИМУМАМИ"
	summaryBalanced    = "СБОРЫ СТОПОВ СБАЛАНСИРОВАНЫ"
	summaryNone        = "СБОРЫ СТОПОВ НЕ ОБНАРУЖЕНЫ"
)

// summarize классифицирует события на недавние и исторические и выдает
// рекомендацию по приоритету: недавний нижний > недавний верхний >
// перевес нижних > перевес верхних > баланс > нет событий.
func (a *Analyzer) summarize(events []models.StopHuntEvent, windowLength int) string {
	if len(events) == 0 {
		return summaryNone
	}

	recentWindow := int(math.Max(3, float64(windowLength)*0.15))
	recentFrom := windowLength - recentWindow

	var recentLower, recentUpper, totalLower, totalUpper int
	for _, e := range events {
		recent := e.CandleIndex >= recentFrom
		if e.Side == models.LowerHunt {
			totalLower++
			if recent {
				recentLower++
			}
		} else {
			totalUpper++
			if recent {
				recentUpper++
			}
		}
	}

	switch {
	case recentLower > 0:
		return summaryRecentLower
	case recentUpper > 0:
		return summaryRecentUpper
	case totalLower > totalUpper:
		return summaryLowerBias
	case totalUpper > totalLower:
		return summaryUpperBias
	default:
		return summaryBalanced
	}
}
