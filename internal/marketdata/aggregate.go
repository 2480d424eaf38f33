package marketdata

import "time"

func aggregateCandles(base []Candle, interval time.Duration) []Candle {
	if interval <= time.Minute {
		out := make([]Candle, len(base))
		copy(out, base)
		return out
	}
	step := int64(interval.Seconds())
	if step <= 0 || len(base) == 0 {
		return nil
	}
	out := make([]Candle, 0, len(base))
	var cur Candle
	var bucket int64 = -1
	for _, c := range base {
		b := c.Time - (c.Time % step)
		if bucket != b {
			if bucket >= 0 {
				out = append(out, cur)
			}
			bucket = b
			cur = c
			cur.Time = b
			continue
		}
		if c.High.GreaterThan(cur.High) {
			cur.High = c.High
		}
		if c.Low.LessThan(cur.Low) {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.Ticks += c.Ticks
	}
	if bucket >= 0 {
		out = append(out, cur)
	}
	return out
}

func trimCandles(candles []Candle, limit int) []Candle {
	if limit <= 0 || len(candles) <= limit {
		return candles
	}
	return candles[len(candles)-limit:]
}
