// Общая библиотека ценовых паттернов. Используется и автономным детектором
// структуры, и движком синтеза сигналов, чтобы правила HH/HL/LH/LL, CHoCH и
// BOS не расходились между двумя местами вызова.
package pattern

import (
	"math"

	"github.com/skalibog/smca/pkg/models"
)

// Classify размечает последовательность экстремумов метками HH/HL/LH/LL.
// Экстремумы должны быть упорядочены по времени. Каждый новый High сравнивается
// с последним увиденным High, каждый новый Low - с последним Low.
func Classify(points []models.SwingPoint) []models.StructureSegment {
	var segments []models.StructureSegment
	var lastHigh, lastLow *models.SwingPoint

	for i := range points {
		point := points[i]
		switch point.Kind {
		case models.SwingHigh:
			if lastHigh != nil {
				kind := models.LowerHigh
				if point.Price > lastHigh.Price {
					kind = models.HigherHigh
				}
				segments = append(segments, models.StructureSegment{
					Kind:     kind,
					From:     *lastHigh,
					To:       point,
					Strength: segmentStrength(*lastHigh, point),
				})
			}
			lastHigh = &points[i]
		case models.SwingLow:
			if lastLow != nil {
				kind := models.HigherLow
				if point.Price < lastLow.Price {
					kind = models.LowerLow
				}
				segments = append(segments, models.StructureSegment{
					Kind:     kind,
					From:     *lastLow,
					To:       point,
					Strength: segmentStrength(*lastLow, point),
				})
			}
			lastLow = &points[i]
		}
	}

	return segments
}

// segmentStrength сила участка как относительное изменение цены
func segmentStrength(from, to models.SwingPoint) float64 {
	if from.Price == 0 {
		return 0
	}
	return math.Abs(to.Price-from.Price) / from.Price
}

// Shifts находит сломы структуры по парам соседних участков.
// Бычий слом: LL->HL или LH->HH. Медвежий слом: HH->LH или HL->LL.
// На одну пару участков приходится не более одного слома.
func Shifts(segments []models.StructureSegment) []models.StructureShift {
	var shifts []models.StructureShift

	for i := 1; i < len(segments); i++ {
		prev := segments[i-1]
		cur := segments[i]

		var direction models.Direction
		switch {
		case BullishTransition(prev.Kind, cur.Kind):
			direction = models.Bullish
		case BearishTransition(prev.Kind, cur.Kind):
			direction = models.Bearish
		default:
			continue
		}

		shifts = append(shifts, models.StructureShift{
			Direction:       direction,
			Segment:         cur,
			PreviousSegment: prev,
			Strength:        cur.Strength,
			Time:            cur.To.Time,
			Price:           cur.To.Price,
			Index:           cur.To.Index,
		})
	}

	return shifts
}

// BullishTransition сообщает, переворачивается ли структура вверх
func BullishTransition(prev, cur models.SegmentKind) bool {
	return (prev == models.LowerLow && cur == models.HigherLow) ||
		(prev == models.LowerHigh && cur == models.HigherHigh)
}

// BearishTransition сообщает, переворачивается ли структура вниз
func BearishTransition(prev, cur models.SegmentKind) bool {
	return (prev == models.HigherHigh && cur == models.LowerHigh) ||
		(prev == models.HigherLow && cur == models.LowerLow)
}

// RisingTail проверяет строгий рост последних count значений
func RisingTail(values []float64, count int) bool {
	if len(values) < count || count < 2 {
		return false
	}
	tail := values[len(values)-count:]
	for i := 1; i < len(tail); i++ {
		if tail[i] <= tail[i-1] {
			return false
		}
	}
	return true
}

// FallingTail проверяет строгое падение последних count значений
func FallingTail(values []float64, count int) bool {
	if len(values) < count || count < 2 {
		return false
	}
	tail := values[len(values)-count:]
	for i := 1; i < len(tail); i++ {
		if tail[i] >= tail[i-1] {
			return false
		}
	}
	return true
}

// HighestTail возвращает максимум последних count значений
func HighestTail(values []float64, count int) float64 {
	if len(values) == 0 {
		return 0
	}
	if count > len(values) {
		count = len(values)
	}
	tail := values[len(values)-count:]
	max := tail[0]
	for _, v := range tail[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// LowestTail возвращает минимум последних count значений
func LowestTail(values []float64, count int) float64 {
	if len(values) == 0 {
		return 0
	}
	if count > len(values) {
		count = len(values)
	}
	tail := values[len(values)-count:]
	min := tail[0]
	for _, v := range tail[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// EqualTail проверяет, укладываются ли последние count значений в допуск.
// Используется для EQH/EQL: почти равные экстремумы читаются как пул ликвидности.
func EqualTail(values []float64, count int, tolerance float64) bool {
	if len(values) < count || count < 2 {
		return false
	}
	tail := values[len(values)-count:]
	return HighestTail(tail, count)-LowestTail(tail, count) <= tolerance
}

// BullishBreak проверяет пробой максимума предыдущих window свечей закрытием (BOS вверх)
func BullishBreak(highs, closes []float64, window int) bool {
	if len(highs) < window+1 || len(closes) == 0 {
		return false
	}
	prior := highs[len(highs)-window-1 : len(highs)-1]
	return closes[len(closes)-1] > HighestTail(prior, window)
}

// BearishBreak проверяет пробой минимума предыдущих window свечей закрытием (BOS вниз)
func BearishBreak(lows, closes []float64, window int) bool {
	if len(lows) < window+1 || len(closes) == 0 {
		return false
	}
	prior := lows[len(lows)-window-1 : len(lows)-1]
	return closes[len(closes)-1] < LowestTail(prior, window)
}

// BullishCHoCH смена характера вверх на трехточечном окне сырых массивов:
// минимумы падали, последний минимум выше, закрытие пробило предыдущий максимум
func BullishCHoCH(highs, lows, closes []float64) bool {
	n := len(closes)
	if n < 3 || len(highs) < 3 || len(lows) < 3 {
		return false
	}
	return lows[n-2] < lows[n-3] &&
		lows[n-1] > lows[n-2] &&
		closes[n-1] > highs[n-2]
}

// BearishCHoCH смена характера вниз: максимумы росли, последний максимум ниже,
// закрытие пробило предыдущий минимум
func BearishCHoCH(highs, lows, closes []float64) bool {
	n := len(closes)
	if n < 3 || len(highs) < 3 || len(lows) < 3 {
		return false
	}
	return highs[n-2] > highs[n-3] &&
		highs[n-1] < highs[n-2] &&
		closes[n-1] < lows[n-2]
}

// MonotonicUp согласованный рост максимумов, минимумов и закрытий (MSB вверх)
func MonotonicUp(highs, lows, closes []float64, count int) bool {
	return RisingTail(highs, count) && RisingTail(lows, count) && RisingTail(closes, count)
}

// MonotonicDown согласованное падение максимумов, минимумов и закрытий (MSS вниз)
func MonotonicDown(highs, lows, closes []float64, count int) bool {
	return FallingTail(highs, count) && FallingTail(lows, count) && FallingTail(closes, count)
}
