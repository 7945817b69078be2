package structure

import (
	"reflect"
	"testing"
	"time"

	"github.com/skalibog/smca/internal/config"
	"github.com/skalibog/smca/pkg/models"
)

// trendCandles строит серию свечей вокруг заданных цен
func trendCandles(prices ...float64) []models.Candle {
	candles := make([]models.Candle, len(prices))
	for i, p := range prices {
		candles[i] = models.Candle{
			OpenTime:  time.Unix(int64(i)*3600, 0),
			Open:      p,
			High:      p + 0.5,
			Low:       p - 0.5,
			Close:     p,
			CloseTime: time.Unix(int64(i+1)*3600, 0),
		}
	}
	return candles
}

func TestDetectSwings(t *testing.T) {
	a := NewAnalyzer(config.StructureConfig{Lookback: 2})
	// Пик на индексе 2, впадина на 6, пик на 8
	res := a.Detect(trendCandles(10, 11, 12, 11, 10, 9, 8, 9, 10, 9, 8))

	if len(res.SwingPoints) != 3 {
		t.Fatalf("ожидалось 3 экстремума, получено %d", len(res.SwingPoints))
	}

	expected := []struct {
		index int
		kind  models.SwingKind
		price float64
	}{
		{2, models.SwingHigh, 12.5},
		{6, models.SwingLow, 7.5},
		{8, models.SwingHigh, 10.5},
	}
	for i, e := range expected {
		p := res.SwingPoints[i]
		if p.Index != e.index || p.Kind != e.kind || p.Price != e.price {
			t.Errorf("экстремум %d: ожидалось (%d, %s, %.1f), получено (%d, %s, %.1f)",
				i, e.index, e.kind, e.price, p.Index, p.Kind, p.Price)
		}
	}

	// Два пика дают один участок LH
	if len(res.Segments) != 1 || res.Segments[0].Kind != models.LowerHigh {
		t.Fatalf("ожидался один участок LH, получено %+v", res.Segments)
	}
}

func TestDetectSwingBounds(t *testing.T) {
	lookback := 3
	a := NewAnalyzer(config.StructureConfig{Lookback: lookback})
	candles := trendCandles(10, 12, 9, 14, 8, 15, 7, 16, 6, 17, 5, 18, 4)

	res := a.Detect(candles)
	for _, p := range res.SwingPoints {
		if p.Index < lookback || p.Index >= len(candles)-lookback {
			t.Errorf("экстремум %d вне допустимого окна", p.Index)
		}
	}
}

func TestDetectFlatTopNoDuplicates(t *testing.T) {
	a := NewAnalyzer(config.StructureConfig{Lookback: 2})
	// Плоская двойная вершина: равенство не дает экстремума
	res := a.Detect(trendCandles(10, 11, 12, 12, 11, 10, 9))

	for _, p := range res.SwingPoints {
		if p.Kind == models.SwingHigh {
			t.Errorf("плоская вершина не должна давать экстремум, получен индекс %d", p.Index)
		}
	}
}

func TestDetectInsufficientData(t *testing.T) {
	a := NewAnalyzer(config.StructureConfig{Lookback: 5})
	res := a.Detect(trendCandles(10, 11, 12))

	if len(res.SwingPoints) != 0 || len(res.Segments) != 0 || len(res.Shifts) != 0 {
		t.Fatalf("короткая серия должна давать пустой результат, получено %+v", res)
	}
}

func TestDetectBullishShift(t *testing.T) {
	a := NewAnalyzer(config.StructureConfig{Lookback: 1})
	// Впадины: 8, затем 6 (LL), затем 7 (HL); вершины между ними равные,
	// чтобы не порождать участки между парами впадин
	res := a.Detect(trendCandles(10, 8, 11, 11, 6, 11, 11, 7, 11, 9))

	var lowSegments []models.SegmentKind
	for _, s := range res.Segments {
		if s.Kind == models.LowerLow || s.Kind == models.HigherLow {
			lowSegments = append(lowSegments, s.Kind)
		}
	}
	if !reflect.DeepEqual(lowSegments, []models.SegmentKind{models.LowerLow, models.HigherLow}) {
		t.Fatalf("ожидалась последовательность [LL HL], получено %v", lowSegments)
	}

	if len(res.Shifts) != 1 {
		t.Fatalf("ожидался ровно один слом, получено %d", len(res.Shifts))
	}
	shift := res.Shifts[0]
	if shift.Direction != models.Bullish {
		t.Errorf("ожидался бычий слом, получен %s", shift.Direction)
	}
	if shift.PreviousSegment.Kind != models.LowerLow || shift.Segment.Kind != models.HigherLow {
		t.Errorf("слом ссылается не на смежные участки LL->HL")
	}
}

func TestDetectMalformedCandle(t *testing.T) {
	a := NewAnalyzer(config.StructureConfig{Lookback: 2})
	clean := trendCandles(10, 11, 12, 11, 10, 9, 8, 9, 10, 9, 8)

	// Свеча пика с перепутанными границами: high < low
	broken := trendCandles(10, 11, 12, 11, 10, 9, 8, 9, 10, 9, 8)
	broken[2].High, broken[2].Low = broken[2].Low, broken[2].High

	res := a.Detect(broken)
	if len(res.SwingPoints) == 0 {
		t.Fatal("искаженная свеча не должна скрывать экстремум")
	}
	if res.SwingPoints[0].Index != 2 || res.SwingPoints[0].Price != 12.5 {
		t.Errorf("ожидался пик на индексе 2 с восстановленной ценой 12.5, получено (%d, %.1f)",
			res.SwingPoints[0].Index, res.SwingPoints[0].Price)
	}

	// После нормализации результат совпадает с корректной серией
	if !reflect.DeepEqual(res, a.Detect(clean)) {
		t.Fatal("нормализация должна восстанавливать результат корректной серии")
	}
}

func TestDetectIdempotent(t *testing.T) {
	a := NewAnalyzer(config.StructureConfig{Lookback: 2})
	candles := trendCandles(10, 11, 12, 11, 10, 9, 8, 9, 10, 9, 8)

	first := a.Detect(candles)
	second := a.Detect(candles)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("повторный вызов с той же серией дал другой результат")
	}
}
