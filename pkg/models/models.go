package models

import (
	"math"
	"time"
)

// Candle представляет свечу
type Candle struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// Body возвращает размер тела свечи
func (c Candle) Body() float64 {
	return math.Abs(c.Close - c.Open)
}

// Range возвращает полный диапазон свечи
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Bullish сообщает, бычья ли свеча
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}

// Normalized возвращает свечу с восстановленной монотонностью OHLC.
// Некорректные данные (high < low и т.п.) не должны ломать детекторы,
// поэтому границы восстанавливаются по фактическим экстремумам.
func (c Candle) Normalized() Candle {
	high := math.Max(math.Max(c.Open, c.Close), math.Max(c.High, c.Low))
	low := math.Min(math.Min(c.Open, c.Close), math.Min(c.High, c.Low))
	c.High = high
	c.Low = low
	return c
}

// NormalizeCandles нормализует каждую свечу серии
func NormalizeCandles(candles []Candle) []Candle {
	out := make([]Candle, len(candles))
	for i, c := range candles {
		out[i] = c.Normalized()
	}
	return out
}

// SwingKind тип экстремума
type SwingKind string

const (
	SwingHigh SwingKind = "HIGH"
	SwingLow  SwingKind = "LOW"
)

// SwingPoint представляет локальный экстремум цены
type SwingPoint struct {
	Index int
	Time  time.Time
	Price float64
	Kind  SwingKind
}

// SegmentKind метка структуры между двумя однотипными экстремумами
type SegmentKind string

const (
	HigherHigh SegmentKind = "HH"
	HigherLow  SegmentKind = "HL"
	LowerHigh  SegmentKind = "LH"
	LowerLow   SegmentKind = "LL"
)

// StructureSegment представляет участок структуры между двумя экстремумами
type StructureSegment struct {
	Kind     SegmentKind
	From     SwingPoint
	To       SwingPoint
	Strength float64
}

// Direction направление паттерна
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
)

// StructureShift представляет слом структуры (разворот тренда)
type StructureShift struct {
	Direction       Direction
	Segment         StructureSegment
	PreviousSegment StructureSegment
	Strength        float64
	Time            time.Time
	Price           float64
	Index           int
}

// FairValueGap представляет трехсвечный дисбаланс (FVG)
type FairValueGap struct {
	Direction   Direction
	Top         float64
	Bottom      float64
	SizePercent float64
	CandleIndex int
	StartTime   time.Time
	IsFilled    bool
	FilledAt    time.Time
	Age         int
}

// OrderBlockZone представляет зону ордер-блока перед импульсом
type OrderBlockZone struct {
	Direction   Direction
	Top         float64
	Bottom      float64
	Strength    float64
	CandleIndex int
	Time        time.Time
	IsTested    bool
	TestedAt    time.Time
	Age         int
}

// StopHuntSide сторона снятия ликвидности
type StopHuntSide string

const (
	UpperHunt StopHuntSide = "UPPER"
	LowerHunt StopHuntSide = "LOWER"
)

// StopHuntEvent представляет свечу со сбором стопов (длинный фитиль)
type StopHuntEvent struct {
	Side        StopHuntSide
	CandleIndex int
	Time        time.Time
	Price       float64
	WickRatio   float64
	BodyRatio   float64
}

// SignalDirection направление торгового сигнала
type SignalDirection string

const (
	Buy  SignalDirection = "BUY"
	Sell SignalDirection = "SELL"
)

// Signal представляет торговый сигнал
type Signal struct {
	ID         string
	Pair       string
	Direction  SignalDirection
	EntryPoint float64
	StopLoss   float64
	TakeProfit float64
	Reasoning  []string
	Confidence float64
	Timestamp  time.Time
}

// OrderBookLevel представляет уровень стакана
type OrderBookLevel struct {
	Price  string
	Amount string
}

// OrderBook представляет стакан заявок
type OrderBook struct {
	Symbol    string
	Timestamp time.Time
	Bids      []OrderBookLevel
	Asks      []OrderBookLevel
}

// WallSide сторона стакана
type WallSide string

const (
	BidWall WallSide = "BID"
	AskWall WallSide = "ASK"
)

// OrderBookWall представляет значимую плиту в стакане
type OrderBookWall struct {
	Side            WallSide
	Price           float64
	Size            float64
	IsDuplicateSize bool
}
