package stophunt

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/skalibog/smca/internal/config"
	"github.com/skalibog/smca/pkg/models"
)

func candle(i int, open, high, low, closePrice float64) models.Candle {
	return models.Candle{
		OpenTime:  time.Unix(int64(i)*3600, 0),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		CloseTime: time.Unix(int64(i+1)*3600, 0),
	}
}

// quiet спокойная свеча без длинных фитилей
func quiet(i int) models.Candle {
	return candle(i, 100, 101, 99.5, 100.8)
}

func TestDetectLowerHunt(t *testing.T) {
	a := NewAnalyzer(config.StopHuntConfig{MinWickRatio: 5, MinBodyToRangeRatio: 0.1})
	// Тело 1, диапазон 12, нижний фитиль 10
	candles := []models.Candle{
		quiet(0),
		candle(1, 100, 102, 90, 101),
	}

	res := a.Detect(candles)
	if len(res.Events) != 1 {
		t.Fatalf("ожидалось одно событие, получено %d", len(res.Events))
	}

	e := res.Events[0]
	if e.Side != models.LowerHunt {
		t.Errorf("ожидалась нижняя сторона, получена %s", e.Side)
	}
	if e.CandleIndex != 1 || e.Price != 90 {
		t.Errorf("ожидались индекс 1 и цена 90, получены %d/%.1f", e.CandleIndex, e.Price)
	}
	if e.WickRatio != 10 {
		t.Errorf("ожидалось отношение фитиля 10, получено %.3f", e.WickRatio)
	}
	if math.Abs(e.BodyRatio-1.0/12) > 1e-9 {
		t.Errorf("ожидалось отношение тела 1/12, получено %.4f", e.BodyRatio)
	}
}

func TestDojiSkipped(t *testing.T) {
	a := NewAnalyzer(config.StopHuntConfig{MinWickRatio: 1, MinBodyToRangeRatio: 0.9})
	candles := []models.Candle{
		candle(0, 100, 105, 95, 100),
	}

	if res := a.Detect(candles); len(res.Events) != 0 {
		t.Fatalf("доджи должен пропускаться, получено %d событий", len(res.Events))
	}
}

func TestBothSidesIndependent(t *testing.T) {
	a := NewAnalyzer(config.StopHuntConfig{MinWickRatio: 5, MinBodyToRangeRatio: 0.1})
	// Тело 0.5, нижний фитиль 5 (x10), верхний фитиль 5.5 (x11)
	candles := []models.Candle{
		candle(0, 100, 106, 95, 100.5),
	}

	res := a.Detect(candles)
	if len(res.Events) != 2 {
		t.Fatalf("длинные фитили с обеих сторон должны давать два события, получено %d", len(res.Events))
	}

	sides := map[models.StopHuntSide]bool{}
	for _, e := range res.Events {
		sides[e.Side] = true
	}
	if !sides[models.LowerHunt] || !sides[models.UpperHunt] {
		t.Error("ожидались события с обеих сторон")
	}
}

func TestFatBodyIgnored(t *testing.T) {
	a := NewAnalyzer(config.StopHuntConfig{MinWickRatio: 0.5, MinBodyToRangeRatio: 0.3})
	// Тело 6 при диапазоне 8: отношение 0.75 выше порога
	candles := []models.Candle{
		candle(0, 100, 107, 99, 106),
	}

	if res := a.Detect(candles); len(res.Events) != 0 {
		t.Fatalf("свеча с крупным телом не должна давать событий, получено %d", len(res.Events))
	}
}

func TestSummaryRecentLowerWins(t *testing.T) {
	a := NewAnalyzer(config.StopHuntConfig{MinWickRatio: 5, MinBodyToRangeRatio: 0.1})

	candles := make([]models.Candle, 0, 20)
	// Исторический верхний сбор в начале окна
	candles = append(candles, candle(0, 100, 112, 99.8, 100.5))
	for i := 1; i < 19; i++ {
		candles = append(candles, quiet(i))
	}
	// Недавний нижний сбор в конце окна
	candles = append(candles, candle(19, 100, 102, 90, 101))

	res := a.Detect(candles)
	if res.Summary != summaryRecentLower {
		t.Fatalf("недавний нижний сбор должен иметь высший приоритет, получено %q", res.Summary)
	}
}

func TestSummaryHistoricalBias(t *testing.T) {
	a := NewAnalyzer(config.StopHuntConfig{MinWickRatio: 5, MinBodyToRangeRatio: 0.1})

	candles := make([]models.Candle, 0, 30)
	// Два нижних сбора в исторической части
	candles = append(candles, candle(0, 100, 102, 90, 101))
	candles = append(candles, candle(1, 100, 102, 90, 101))
	for i := 2; i < 30; i++ {
		candles = append(candles, quiet(i))
	}

	res := a.Detect(candles)
	if res.Summary != summaryLowerBias {
		t.Fatalf("перевес нижних сборов должен давать соответствующую сводку, получено %q", res.Summary)
	}
}

func TestSummaryNone(t *testing.T) {
	a := NewAnalyzer(config.StopHuntConfig{MinWickRatio: 5, MinBodyToRangeRatio: 0.1})

	candles := []models.Candle{quiet(0), quiet(1), quiet(2)}
	res := a.Detect(candles)
	if res.Summary != summaryNone {
		t.Fatalf("без событий ожидалась пустая сводка, получено %q", res.Summary)
	}
}

func TestDetectIdempotent(t *testing.T) {
	a := NewAnalyzer(config.StopHuntConfig{MinWickRatio: 5, MinBodyToRangeRatio: 0.1})
	candles := []models.Candle{quiet(0), candle(1, 100, 102, 90, 101)}

	if !reflect.DeepEqual(a.Detect(candles), a.Detect(candles)) {
		t.Fatal("повторный вызов с той же серией дал другой результат")
	}
}
