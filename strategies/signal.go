package strategies

import (
	"iter"

	"github.com/rustyeddy/smacross/indicators"
)

// Signal classifies one bar.
type Signal int

const (
	None Signal = iota
	BullishCross
	BearishCross
)

func (s Signal) String() string {
	switch s {
	case BullishCross:
		return "BULLISH_CROSS"
	case BearishCross:
		return "BEARISH_CROSS"
	default:
		return "NONE"
	}
}

// Classify compares the previous bar's short/long averages with the
// current bar's. Any undefined input means None.
//
//	bullish: prevShort <= prevLong && curShort > curLong
//	bearish: prevShort >= prevLong && curShort < curLong
func Classify(prevShort, prevLong, curShort, curLong float64) Signal {
	for _, v := range [...]float64{prevShort, prevLong, curShort, curLong} {
		if !indicators.Defined(v) {
			return None
		}
	}
	switch {
	case prevShort <= prevLong && curShort > curLong:
		return BullishCross
	case prevShort >= prevLong && curShort < curLong:
		return BearishCross
	default:
		return None
	}
}

// lines computes the short and long averages for p.
func lines(closes []float64, p Params) (short, long []float64, err error) {
	short, err = indicators.MovingAverage(p.MAType, closes, p.ShortWindow)
	if err != nil {
		return nil, nil, err
	}
	long, err = indicators.MovingAverage(p.MAType, closes, p.LongWindow)
	if err != nil {
		return nil, nil, err
	}
	return short, long, nil
}

// Signals yields (index, signal) for every close, index 0 first. Nothing is
// computed until the sequence is ranged over, and each range starts over.
// p must be valid; with unusable windows every bar is None.
func Signals(closes []float64, p Params) iter.Seq2[int, Signal] {
	return func(yield func(int, Signal) bool) {
		short, long, err := lines(closes, p)
		for i := range closes {
			sig := None
			if err == nil && i > 0 {
				sig = Classify(short[i-1], long[i-1], short[i], long[i])
			}
			if !yield(i, sig) {
				return
			}
		}
	}
}

// SignalSeries collects Signals into a slice.
func SignalSeries(closes []float64, p Params) []Signal {
	out := make([]Signal, 0, len(closes))
	for _, s := range Signals(closes, p) {
		out = append(out, s)
	}
	return out
}

// lastSignal classifies the final close only.
func lastSignal(closes []float64, p Params) Signal {
	n := len(closes)
	if n < 2 {
		return None
	}
	short, long, err := lines(closes, p)
	if err != nil {
		return None
	}
	return Classify(short[n-2], long[n-2], short[n-1], long[n-1])
}
