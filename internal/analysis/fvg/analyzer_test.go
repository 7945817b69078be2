package fvg

import (
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

func TestDetectBullishGap(t *testing.T) {
	a := NewAnalyzer(config.FVGConfig{MinGapSizePercent: 1, MaxAgeCandles: 50})
	candles := []models.Candle{
		candle(0, 99.5, 100, 99, 99.8),
		candle(1, 100, 104, 100, 103),
		candle(2, 105.2, 106, 105, 105.8),
	}

	gaps := a.Detect(candles)
	if len(gaps) != 1 {
		t.Fatalf("ожидался один имбаланс, получено %d", len(gaps))
	}

	gap := gaps[0]
	if gap.Direction != models.Bullish {
		t.Errorf("ожидался бычий имбаланс, получен %s", gap.Direction)
	}
	if gap.Top != 105 || gap.Bottom != 100 {
		t.Errorf("ожидались границы 105/100, получены %.2f/%.2f", gap.Top, gap.Bottom)
	}
	if gap.SizePercent != 5 {
		t.Errorf("ожидался размер 5%%, получено %.4f", gap.SizePercent)
	}
	if gap.Top <= gap.Bottom {
		t.Error("верхняя граница должна быть выше нижней")
	}
	if gap.CandleIndex != 1 || gap.Age != 1 {
		t.Errorf("ожидались индекс 1 и возраст 1, получены %d/%d", gap.CandleIndex, gap.Age)
	}
	if gap.IsFilled {
		t.Error("имбаланс без обратного хода не должен быть заполнен")
	}
}

func TestDetectBearishGap(t *testing.T) {
	a := NewAnalyzer(config.FVGConfig{MinGapSizePercent: 1, MaxAgeCandles: 50})
	candles := []models.Candle{
		candle(0, 105.5, 106, 105, 105.2),
		candle(1, 105, 105, 101, 101.5),
		candle(2, 100.5, 100.8, 99.5, 99.8),
	}

	gaps := a.Detect(candles)
	if len(gaps) != 1 {
		t.Fatalf("ожидался один имбаланс, получено %d", len(gaps))
	}
	gap := gaps[0]
	if gap.Direction != models.Bearish {
		t.Errorf("ожидался медвежий имбаланс, получен %s", gap.Direction)
	}
	if gap.Top != 105 || gap.Bottom != 100.8 {
		t.Errorf("ожидались границы 105/100.8, получены %.2f/%.2f", gap.Top, gap.Bottom)
	}
}

func TestFillTracking(t *testing.T) {
	a := NewAnalyzer(config.FVGConfig{MinGapSizePercent: 1, MaxAgeCandles: 50, ShowFilled: true})
	candles := []models.Candle{
		candle(0, 99.5, 100, 99, 99.8),
		candle(1, 100, 104, 100, 103),
		candle(2, 105.2, 106, 105, 105.8),
		candle(3, 105, 105.5, 102, 102.5),
		candle(4, 102, 105.1, 99.8, 100.2),
		candle(5, 100, 101, 99.9, 100.5),
	}

	gaps := a.Detect(candles)
	if len(gaps) != 1 {
		t.Fatalf("ожидался один имбаланс, получено %d", len(gaps))
	}

	gap := gaps[0]
	if !gap.IsFilled {
		t.Fatal("возврат цены к нижней границе должен заполнять имбаланс")
	}
	// Первое касание: свеча 4, а не 5
	if !gap.FilledAt.Equal(candles[4].OpenTime) {
		t.Errorf("ожидалось заполнение свечой 4, получено %v", gap.FilledAt)
	}
	if gap.FilledAt.Before(gap.StartTime) {
		t.Error("время заполнения не может предшествовать появлению имбаланса")
	}
}

func TestFilledGapsDropped(t *testing.T) {
	a := NewAnalyzer(config.FVGConfig{MinGapSizePercent: 1, MaxAgeCandles: 50})
	candles := []models.Candle{
		candle(0, 99.5, 100, 99, 99.8),
		candle(1, 100, 104, 100, 103),
		candle(2, 105.2, 106, 105, 105.8),
		candle(3, 105, 105.5, 99.5, 100),
	}

	if gaps := a.Detect(candles); len(gaps) != 0 {
		t.Fatalf("заполненный имбаланс должен отбрасываться без show_filled, получено %d", len(gaps))
	}
}

func TestMinSizeFilter(t *testing.T) {
	a := NewAnalyzer(config.FVGConfig{MinGapSizePercent: 10, MaxAgeCandles: 50})
	candles := []models.Candle{
		candle(0, 99.5, 100, 99, 99.8),
		candle(1, 100, 104, 100, 103),
		candle(2, 105.2, 106, 105, 105.8),
	}

	if gaps := a.Detect(candles); len(gaps) != 0 {
		t.Fatalf("имбаланс меньше порога должен отбрасываться, получено %d", len(gaps))
	}
}

func TestSortedBySize(t *testing.T) {
	a := NewAnalyzer(config.FVGConfig{MinGapSizePercent: 1, MaxAgeCandles: 50})
	// Два бычьих имбаланса: маленький (около 2%) и большой (около 9.5%)
	candles := []models.Candle{
		candle(0, 99.5, 100, 99, 99.8),
		candle(1, 100, 101.5, 100, 101.4),
		candle(2, 102.2, 103, 102, 102.8),
		candle(3, 103, 104, 102.9, 103.8),
		candle(4, 112.8, 114, 112.8, 113.5),
	}

	gaps := a.Detect(candles)
	if len(gaps) < 2 {
		t.Fatalf("ожидалось минимум два имбаланса, получено %d", len(gaps))
	}
	for i := 1; i < len(gaps); i++ {
		if gaps[i].SizePercent > gaps[i-1].SizePercent {
			t.Fatal("результат должен быть отсортирован по размеру по убыванию")
		}
	}
}

func TestAgeFilter(t *testing.T) {
	a := NewAnalyzer(config.FVGConfig{MinGapSizePercent: 1, MaxAgeCandles: 1})
	candles := []models.Candle{
		candle(0, 99.5, 100, 99, 99.8),
		candle(1, 100, 104, 100, 103),
		candle(2, 105.2, 106, 105, 105.8),
		candle(3, 105.5, 106.5, 104, 106),
		candle(4, 106, 107, 105.9, 106.5),
	}

	// Имбаланс на индексе 1 имеет возраст 3 и отбрасывается
	if gaps := a.Detect(candles); len(gaps) != 0 {
		t.Fatalf("старый имбаланс должен отбрасываться, получено %d", len(gaps))
	}
}

func TestDetectIdempotent(t *testing.T) {
	a := NewAnalyzer(config.FVGConfig{MinGapSizePercent: 1, MaxAgeCandles: 50})
	candles := []models.Candle{
		candle(0, 99.5, 100, 99, 99.8),
		candle(1, 100, 104, 100, 103),
		candle(2, 105.2, 106, 105, 105.8),
	}

	if !reflect.DeepEqual(a.Detect(candles), a.Detect(candles)) {
		t.Fatal("повторный вызов с той же серией дал другой результат")
	}
}
