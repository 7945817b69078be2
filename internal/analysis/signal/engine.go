package signal

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/markcheno/go-talib"

	"github.com/skalibog/smca/internal/analysis/pattern"
	"github.com/skalibog/smca/internal/config"
	"github.com/skalibog/smca/pkg/models"
)

// Ошибки синтеза. Отсутствие паттерна - штатный исход цикла, не сбой.
var (
	ErrNoPattern        = errors.New("подходящий паттерн не найден")
	ErrInsufficientData = errors.New("недостаточно свечей для синтеза сигнала")
)

// minCandles минимальная длина серии для синтеза
const minCandles = 50

// swingWindow окно последних свечей для расчета диапазона
const swingWindow = 20

// Engine реализует движок синтеза сигналов.
// Правила проверяются строго по приоритету, возвращается первое совпадение.
type Engine struct {
	config   config.SignalConfig
	adjuster ConfidenceAdjuster
}

// NewEngine создает новый движок синтеза
func NewEngine(cfg config.SignalConfig) *Engine {
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = 14
	}
	e := &Engine{config: cfg}
	if cfg.UseOrderBook {
		e.adjuster = NewWallAdjuster(cfg.WallSizeFactor)
	}
	return e
}

// SetAdjuster подменяет стратегию корректировки уверенности.
// Эвристика плит - именно эвристика, поэтому она заменяема целиком.
func (e *Engine) SetAdjuster(adjuster ConfidenceAdjuster) {
	e.adjuster = adjuster
}

// window подготовленные массивы последних свечей
type window struct {
	candles   []models.Candle
	highs     []float64
	lows      []float64
	closes    []float64
	volumes   []float64
	swingHigh float64
	swingLow  float64
	rng       float64
	atr       float64
}

// Synthesize прогоняет каскад правил по серии и возвращает сигнал первого
// сработавшего. Стакан опционален: он меняет только уверенность и обоснование,
// но никогда не направление.
func (e *Engine) Synthesize(pair string, candles []models.Candle, book *models.OrderBook) (*models.Signal, error) {
	if len(candles) < minCandles {
		return nil, fmt.Errorf("%w: %d свечей", ErrInsufficientData, len(candles))
	}

	w := e.prepare(candles)

	// Полностью плоская серия не дает ни диапазона, ни паттернов
	if w.rng <= 0 {
		return nil, ErrNoPattern
	}

	sig := e.evaluate(pair, w)
	if sig == nil {
		return nil, ErrNoPattern
	}

	if e.adjuster != nil && book != nil {
		e.adjuster.Adjust(sig, book)
	}

	return sig, nil
}

// prepare собирает массивы и базовые метрики окна
func (e *Engine) prepare(candles []models.Candle) window {
	candles = models.NormalizeCandles(candles)

	w := window{
		candles: candles,
		highs:   make([]float64, len(candles)),
		lows:    make([]float64, len(candles)),
		closes:  make([]float64, len(candles)),
		volumes: make([]float64, len(candles)),
	}
	for i, c := range candles {
		w.highs[i] = c.High
		w.lows[i] = c.Low
		w.closes[i] = c.Close
		w.volumes[i] = c.Volume
	}

	w.swingHigh = pattern.HighestTail(w.highs, swingWindow)
	w.swingLow = pattern.LowestTail(w.lows, swingWindow)
	w.rng = w.swingHigh - w.swingLow

	atr := talib.Atr(w.highs, w.lows, w.closes, e.config.ATRPeriod)
	w.atr = atr[len(atr)-1]
	if w.atr <= 0 || math.IsNaN(w.atr) {
		w.atr = w.rng * 0.1
	}

	return w
}

// evaluate каскад правил в фиксированном порядке.
// Порядок значим: более поздние правила практически недостижимы, когда на
// типичных данных срабатывают ранние, и это сохраняемое поведение источника.
func (e *Engine) evaluate(pair string, w window) *models.Signal {
	checks := []func(string, window) *models.Signal{
		e.liquidityGrabBuy,
		e.liquidityGrabSell,
		e.higherHighContinuation,
		e.lowerLowContinuation,
		e.higherLowConfirmation,
		e.lowerHighConfirmation,
		e.changeOfCharacter,
		e.breakOfStructure,
		e.equalExtremes,
		e.fvgMeanReversion,
		e.orderBlockReversal,
		e.monotonicStructure,
		e.stopHuntReversal,
		e.volatilityBreakout,
	}

	for _, check := range checks {
		if sig := check(pair, w); sig != nil {
			return sig
		}
	}
	return nil
}

// newSignal общий конструктор сигнала
func newSignal(pair string, dir models.SignalDirection, entry, stop, target, confidence float64, reason string) *models.Signal {
	return &models.Signal{
		ID:         uuid.NewString(),
		Pair:       pair,
		Direction:  dir,
		EntryPoint: entry,
		StopLoss:   stop,
		TakeProfit: target,
		Reasoning:  []string{reason},
		Confidence: confidence,
		Timestamp:  time.Now(),
	}
}

// liquidityGrabBuy правило 1: снятие ликвидности под минимумом девяти свечей
// с бычьим закрытием выше закрытия предыдущей свечи
func (e *Engine) liquidityGrabBuy(pair string, w window) *models.Signal {
	n := len(w.candles)
	last := w.candles[n-1]
	prev := w.candles[n-2]

	priorLow := pattern.LowestTail(w.lows[:n-1], 9)
	if last.Low < priorLow && last.Bullish() && last.Close > prev.Close {
		entry := last.Close
		stop := last.Low - 0.25*w.atr
		return newSignal(pair, models.Buy, entry, stop, entry+2*(entry-stop), 0.8,
			fmt.Sprintf("ICT: снятие ликвидности под минимумом %.4f и бычий возврат", priorLow))
	}
	return nil
}

// liquidityGrabSell правило 2: зеркальное снятие ликвидности над максимумом
func (e *Engine) liquidityGrabSell(pair string, w window) *models.Signal {
	n := len(w.candles)
	last := w.candles[n-1]
	prev := w.candles[n-2]

	priorHigh := pattern.HighestTail(w.highs[:n-1], 9)
	if last.High > priorHigh && !last.Bullish() && last.Close < prev.Close {
		entry := last.Close
		stop := last.High + 0.25*w.atr
		return newSignal(pair, models.Sell, entry, stop, entry-2*(stop-entry), 0.8,
			fmt.Sprintf("ICT: снятие ликвидности над максимумом %.4f и медвежий возврат", priorHigh))
	}
	return nil
}

// higherHighContinuation правило 3: два подряд растущих максимума
func (e *Engine) higherHighContinuation(pair string, w window) *models.Signal {
	if pattern.RisingTail(w.highs, 3) {
		n := len(w.candles)
		entry := w.candles[n-1].Close
		stop := w.lows[n-2]
		return newSignal(pair, models.Buy, entry, stop, entry+2*(entry-stop), 0.7,
			"Продолжение тренда: обновление максимумов (HH)")
	}
	return nil
}

// lowerLowContinuation правило 4: два подряд падающих минимума
func (e *Engine) lowerLowContinuation(pair string, w window) *models.Signal {
	if pattern.FallingTail(w.lows, 3) {
		n := len(w.candles)
		entry := w.candles[n-1].Close
		stop := w.highs[n-2]
		return newSignal(pair, models.Sell, entry, stop, entry-2*(stop-entry), 0.7,
			"Продолжение тренда: обновление минимумов (LL)")
	}
	return nil
}

// higherLowConfirmation правило 5: растущие закрытия при растущих минимумах
func (e *Engine) higherLowConfirmation(pair string, w window) *models.Signal {
	if pattern.RisingTail(w.closes, 2) && pattern.RisingTail(w.lows, 2) {
		n := len(w.candles)
		entry := w.candles[n-1].Close
		stop := w.lows[n-1] - 0.5*w.atr
		return newSignal(pair, models.Buy, entry, stop, entry+1.5*(entry-stop), 0.65,
			"Подтверждение: повышающийся минимум (HL)")
	}
	return nil
}

// lowerHighConfirmation правило 6: падающие закрытия при падающих максимумах
func (e *Engine) lowerHighConfirmation(pair string, w window) *models.Signal {
	if pattern.FallingTail(w.closes, 2) && pattern.FallingTail(w.highs, 2) {
		n := len(w.candles)
		entry := w.candles[n-1].Close
		stop := w.highs[n-1] + 0.5*w.atr
		return newSignal(pair, models.Sell, entry, stop, entry-1.5*(stop-entry), 0.65,
			"Подтверждение: понижающийся максимум (LH)")
	}
	return nil
}

// changeOfCharacter правило 7: CHoCH на трехточечном окне сырых массивов
func (e *Engine) changeOfCharacter(pair string, w window) *models.Signal {
	n := len(w.candles)
	entry := w.candles[n-1].Close

	if pattern.BearishCHoCH(w.highs, w.lows, w.closes) {
		stop := w.highs[n-2]
		return newSignal(pair, models.Sell, entry, stop, entry-2*(stop-entry), 0.75,
			"CHoCH: смена характера вниз, пробит предыдущий минимум")
	}
	if pattern.BullishCHoCH(w.highs, w.lows, w.closes) {
		stop := w.lows[n-2]
		return newSignal(pair, models.Buy, entry, stop, entry+2*(entry-stop), 0.75,
			"CHoCH: смена характера вверх, пробит предыдущий максимум")
	}
	return nil
}

// breakOfStructure правило 8: пробой экстремума предыдущих пяти свечей
func (e *Engine) breakOfStructure(pair string, w window) *models.Signal {
	n := len(w.candles)
	entry := w.candles[n-1].Close

	if pattern.BullishBreak(w.highs, w.closes, 5) {
		stop := pattern.LowestTail(w.lows[:n-1], 5)
		return newSignal(pair, models.Buy, entry, stop, entry+2*(entry-stop), 0.7,
			"BOS: пробой максимума пяти свечей, продолжение вверх")
	}
	if pattern.BearishBreak(w.lows, w.closes, 5) {
		stop := pattern.HighestTail(w.highs[:n-1], 5)
		return newSignal(pair, models.Sell, entry, stop, entry-2*(stop-entry), 0.7,
			"BOS: пробой минимума пяти свечей, продолжение вниз")
	}
	return nil
}

// equalExtremes правило 9: почти равные экстремумы как пул ликвидности,
// сигнал контртрендовый
func (e *Engine) equalExtremes(pair string, w window) *models.Signal {
	n := len(w.candles)
	entry := w.candles[n-1].Close
	tolerance := 0.02 * w.rng

	if pattern.EqualTail(w.highs, 3, tolerance) {
		level := pattern.HighestTail(w.highs, 3)
		stop := level + 0.5*w.atr
		return newSignal(pair, models.Sell, entry, stop, entry-2*(stop-entry), 0.6,
			fmt.Sprintf("EQH: равные максимумы у %.4f, игра от снятия ликвидности", level))
	}
	if pattern.EqualTail(w.lows, 3, tolerance) {
		level := pattern.LowestTail(w.lows, 3)
		stop := level - 0.5*w.atr
		return newSignal(pair, models.Buy, entry, stop, entry+2*(entry-stop), 0.6,
			fmt.Sprintf("EQL: равные минимумы у %.4f, игра от снятия ликвидности", level))
	}
	return nil
}

// fvgMeanReversion правило 10: разрыв между телами несмежных свечей
// больше пятой части диапазона, сигнал в сторону заполнения
func (e *Engine) fvgMeanReversion(pair string, w window) *models.Signal {
	n := len(w.candles)
	first := w.candles[n-3]
	last := w.candles[n-1]
	entry := last.Close

	upGap := math.Min(last.Open, last.Close) - math.Max(first.Open, first.Close)
	if upGap > 0.2*w.rng {
		target := math.Max(first.Open, first.Close) + upGap/2
		stop := last.High + 0.5*w.atr
		return newSignal(pair, models.Sell, entry, stop, target, 0.65,
			"FVG: имбаланс под ценой, возврат к середине разрыва")
	}

	downGap := math.Min(first.Open, first.Close) - math.Max(last.Open, last.Close)
	if downGap > 0.2*w.rng {
		target := math.Min(first.Open, first.Close) - downGap/2
		stop := last.Low - 0.5*w.atr
		return newSignal(pair, models.Buy, entry, stop, target, 0.65,
			"FVG: имбаланс над ценой, возврат к середине разрыва")
	}
	return nil
}

// orderBlockReversal правило 11: аномальный объем против локального тренда
func (e *Engine) orderBlockReversal(pair string, w window) *models.Signal {
	n := len(w.candles)
	last := w.candles[n-1]

	meanVolume := 0.0
	count := swingWindow
	if count > n {
		count = n
	}
	for _, v := range w.volumes[n-count:] {
		meanVolume += v
	}
	meanVolume /= float64(count)
	if meanVolume == 0 || last.Volume <= 1.5*meanVolume {
		return nil
	}

	// Локальный тренд по закрытию пять свечей назад
	trendUp := last.Close > w.closes[n-6]
	entry := last.Close

	if trendUp && !last.Bullish() {
		stop := last.High + 0.5*w.atr
		return newSignal(pair, models.Sell, entry, stop, entry-2*(stop-entry), 0.7,
			"OB: объемная свеча против восходящего тренда")
	}
	if !trendUp && last.Bullish() {
		stop := last.Low - 0.5*w.atr
		return newSignal(pair, models.Buy, entry, stop, entry+2*(entry-stop), 0.7,
			"OB: объемная свеча против нисходящего тренда")
	}
	return nil
}

// monotonicStructure правило 12: трехточечное согласованное движение (MSB/MSS)
func (e *Engine) monotonicStructure(pair string, w window) *models.Signal {
	n := len(w.candles)
	entry := w.candles[n-1].Close

	if pattern.MonotonicUp(w.highs, w.lows, w.closes, 3) {
		stop := w.lows[n-3]
		return newSignal(pair, models.Buy, entry, stop, entry+2*(entry-stop), 0.7,
			"MSB: согласованный рост максимумов, минимумов и закрытий")
	}
	if pattern.MonotonicDown(w.highs, w.lows, w.closes, 3) {
		stop := w.highs[n-3]
		return newSignal(pair, models.Sell, entry, stop, entry-2*(stop-entry), 0.7,
			"MSS: согласованное падение максимумов, минимумов и закрытий")
	}
	return nil
}

// stopHuntReversal правило 13: фитиль прокалывает экстремум двадцати свечей
// и закрывается обратно внутри диапазона
func (e *Engine) stopHuntReversal(pair string, w window) *models.Signal {
	n := len(w.candles)
	last := w.candles[n-1]
	entry := last.Close

	priorLow := pattern.LowestTail(w.lows[:n-1], swingWindow)
	if last.Low < priorLow && last.Close > priorLow {
		stop := last.Low - 0.25*w.atr
		return newSignal(pair, models.Buy, entry, stop, entry+2*(entry-stop), 0.75,
			fmt.Sprintf("Сбор стопов снизу: скопление стопов у %.4f, закрытие внутри диапазона", priorLow))
	}

	priorHigh := pattern.HighestTail(w.highs[:n-1], swingWindow)
	if last.High > priorHigh && last.Close < priorHigh {
		stop := last.High + 0.25*w.atr
		return newSignal(pair, models.Sell, entry, stop, entry-2*(stop-entry), 0.75,
			fmt.Sprintf("Сбор стопов сверху: скопление стопов у %.4f, закрытие внутри диапазона", priorHigh))
	}
	return nil
}

// volatilityBreakout правило 14: тело последней свечи больше 40 процентов диапазона
func (e *Engine) volatilityBreakout(pair string, w window) *models.Signal {
	n := len(w.candles)
	last := w.candles[n-1]

	if last.Body() <= 0.4*w.rng {
		return nil
	}

	entry := last.Close
	if last.Bullish() {
		stop := last.Open - 0.25*w.atr
		return newSignal(pair, models.Buy, entry, stop, entry+1.5*(entry-stop), 0.7,
			"Волатильный пробой вверх: тело свечи больше 40% диапазона")
	}
	stop := last.Open + 0.25*w.atr
	return newSignal(pair, models.Sell, entry, stop, entry-1.5*(stop-entry), 0.7,
		"Волатильный пробой вниз: тело свечи больше 40% диапазона")
}
