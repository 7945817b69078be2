package structure

import (
	"github.com/skalibog/smca/internal/analysis/pattern"
	"github.com/skalibog/smca/internal/config"
	"github.com/skalibog/smca/pkg/models"
)

// Analyzer реализует детектор свингов и рыночной структуры
type Analyzer struct {
	config config.StructureConfig
}

// Result результат разбора структуры
type Result struct {
	SwingPoints []models.SwingPoint
	Segments    []models.StructureSegment
	Shifts      []models.StructureShift
}

// NewAnalyzer создает новый детектор структуры
func NewAnalyzer(cfg config.StructureConfig) *Analyzer {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 5
	}
	return &Analyzer{
		config: cfg,
	}
}

// Detect находит экстремумы, размечает структуру и сломы.
// Слишком короткая серия - ожидаемое состояние, возвращается пустой результат.
func (a *Analyzer) Detect(candles []models.Candle) Result {
	lookback := a.config.Lookback
	if len(candles) < lookback*2+1 {
		return Result{}
	}

	candles = models.NormalizeCandles(candles)
	points := a.findSwingPoints(candles, lookback)
	segments := pattern.Classify(points)
	shifts := pattern.Shifts(segments)

	return Result{
		SwingPoints: points,
		Segments:    segments,
		Shifts:      shifts,
	}
}

// findSwingPoints ищет локальные экстремумы в симметричном окне.
// Равенство не засчитывается: плоская двойная вершина не должна давать
// два экстремума на соседних индексах.
func (a *Analyzer) findSwingPoints(candles []models.Candle, lookback int) []models.SwingPoint {
	var points []models.SwingPoint

	for i := lookback; i < len(candles)-lookback; i++ {
		isHigh := true
		isLow := true

		for j := i - lookback; j <= i+lookback; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}

		if isHigh {
			points = append(points, models.SwingPoint{
				Index: i,
				Time:  candles[i].OpenTime,
				Price: candles[i].High,
				Kind:  models.SwingHigh,
			})
		}
		if isLow {
			points = append(points, models.SwingPoint{
				Index: i,
				Time:  candles[i].OpenTime,
				Price: candles[i].Low,
				Kind:  models.SwingLow,
			})
		}
	}

	return points
}
