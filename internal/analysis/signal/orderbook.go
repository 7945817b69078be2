package signal

import (
	"fmt"
	"strconv"

	"github.com/skalibog/smca/pkg/models"
)

// ConfidenceAdjuster корректирует уверенность сигнала по состоянию стакана.
// Корректировка никогда не меняет направление, только уверенность и обоснование.
type ConfidenceAdjuster interface {
	Adjust(sig *models.Signal, book *models.OrderBook)
}

// WallAdjuster эвристика плит: крупная заявка на благоприятной стороне
// усиливает сигнал, на противоположной - ослабляет. Одинаковые размеры
// заявок помечаются как возможный спуфинг и уверенность не меняют.
type WallAdjuster struct {
	sizeFactor float64
}

// confidenceStep шаг корректировки уверенности
const confidenceStep = 0.05

// NewWallAdjuster создает корректировщик по плитам стакана
func NewWallAdjuster(sizeFactor float64) *WallAdjuster {
	if sizeFactor <= 0 {
		sizeFactor = 3.0
	}
	return &WallAdjuster{sizeFactor: sizeFactor}
}

// Adjust применяет корректировку к сигналу
func (w *WallAdjuster) Adjust(sig *models.Signal, book *models.OrderBook) {
	walls := DetectWalls(book, w.sizeFactor)
	if len(walls) == 0 {
		return
	}

	var support, oppose *models.OrderBookWall
	for i := range walls {
		wall := &walls[i]
		switch sig.Direction {
		case models.Buy:
			// Для покупки благоприятна плита в бидах, неблагоприятна в асках
			if wall.Side == models.BidWall {
				support = pickLarger(support, wall)
			} else {
				oppose = pickLarger(oppose, wall)
			}
		case models.Sell:
			if wall.Side == models.AskWall {
				support = pickLarger(support, wall)
			} else {
				oppose = pickLarger(oppose, wall)
			}
		}
	}

	if support != nil {
		if support.IsDuplicateSize {
			sig.Reasoning = append(sig.Reasoning,
				fmt.Sprintf("Стакан: плита %.4f с дублирующимся размером, возможен спуфинг, без корректировки", support.Price))
		} else {
			sig.Confidence = clamp(sig.Confidence + confidenceStep)
			sig.Reasoning = append(sig.Reasoning,
				fmt.Sprintf("Стакан: поддерживающая плита %.4f объемом %.2f, уверенность +%.2f", support.Price, support.Size, confidenceStep))
		}
	}

	if oppose != nil {
		if oppose.IsDuplicateSize {
			sig.Reasoning = append(sig.Reasoning,
				fmt.Sprintf("Стакан: встречная плита %.4f с дублирующимся размером, возможен спуфинг, без корректировки", oppose.Price))
		} else {
			sig.Confidence = clamp(sig.Confidence - confidenceStep)
			sig.Reasoning = append(sig.Reasoning,
				fmt.Sprintf("Стакан: встречная плита %.4f объемом %.2f, уверенность -%.2f", oppose.Price, oppose.Size, confidenceStep))
		}
	}
}

// DetectWalls находит значимые плиты: заявки крупнее среднего уровня в
// sizeFactor раз. Заявки с полностью одинаковым размером помечаются как
// дубликаты - частый маркер спуфинга.
func DetectWalls(book *models.OrderBook, sizeFactor float64) []models.OrderBookWall {
	if book == nil {
		return nil
	}

	type level struct {
		side   models.WallSide
		price  float64
		amount float64
	}

	var levels []level
	var totalAmount float64

	parse := func(side models.WallSide, raw []models.OrderBookLevel) {
		for _, l := range raw {
			price, err := strconv.ParseFloat(l.Price, 64)
			if err != nil {
				continue
			}
			amount, err := strconv.ParseFloat(l.Amount, 64)
			if err != nil {
				continue
			}
			levels = append(levels, level{side: side, price: price, amount: amount})
			totalAmount += amount
		}
	}
	parse(models.BidWall, book.Bids)
	parse(models.AskWall, book.Asks)

	if len(levels) == 0 {
		return nil
	}
	avgAmount := totalAmount / float64(len(levels))
	if avgAmount == 0 {
		return nil
	}

	sizeCount := make(map[float64]int, len(levels))
	for _, l := range levels {
		sizeCount[l.amount]++
	}

	var walls []models.OrderBookWall
	for _, l := range levels {
		if l.amount <= avgAmount*sizeFactor {
			continue
		}
		walls = append(walls, models.OrderBookWall{
			Side:            l.side,
			Price:           l.price,
			Size:            l.amount,
			IsDuplicateSize: sizeCount[l.amount] > 1,
		})
	}

	return walls
}

// pickLarger выбирает более крупную плиту
func pickLarger(cur, candidate *models.OrderBookWall) *models.OrderBookWall {
	if cur == nil || candidate.Size > cur.Size {
		return candidate
	}
	return cur
}

// clamp удерживает уверенность в диапазоне [0, 1]
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
