// Package stats computes performance aggregates over a trade set in a chosen
// base currency. Computation is pure: inputs are never mutated and results
// never alias them, so concurrent runs need no coordination.
package stats

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/acowan/tradebook/currency"
	"github.com/acowan/tradebook/trade"
)

// TradeStats is the full aggregate suite. Only closed trades with a realized
// P&L participate in the ratios; TotalTrades counts everything.
type TradeStats struct {
	TotalTrades   int `json:"totalTrades"`
	ClosedTrades  int `json:"closedTrades"`
	WinningTrades int `json:"winningTrades"`
	LosingTrades  int `json:"losingTrades"`

	TotalPnL     float64 `json:"totalPnl"`
	WinRate      float64 `json:"winRate"`
	ProfitFactor float64 `json:"profitFactor"`
	AverageWin   float64 `json:"averageWin"`
	AverageLoss  float64 `json:"averageLoss"`
	LargestWin   float64 `json:"largestWin"`
	LargestLoss  float64 `json:"largestLoss"`
	AverageRRR   float64 `json:"averageRRR"`
	Expectancy   float64 `json:"expectancy"`

	ConsecutiveWins   int `json:"consecutiveWins"`
	ConsecutiveLosses int `json:"consecutiveLosses"`

	AverageHoldingHours float64 `json:"averageHoldingHours"`
	SharpeRatio         float64 `json:"sharpeRatio"`
	SortinoRatio        float64 `json:"sortinoRatio"`
	SQN                 float64 `json:"sqn"`
	MaxDrawdown         float64 `json:"maxDrawdown"`
	MaxDrawdownPercent  float64 `json:"maxDrawdownPercent"`
}

// DailyStats is one aggregate per calendar date of trade exit (UTC).
type DailyStats struct {
	Date    string  `json:"date"`
	PnL     float64 `json:"pnl"`
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"winRate"`
}

// Compute derives TradeStats over trades in the base currency. Each trade's
// P&L is converted from its own currency; prices are never converted. With
// no qualifying trades all ratios are zero but TotalTrades still reports the
// input length.
func Compute(trades []trade.Trade, base string, conv *currency.Converter) TradeStats {
	out := TradeStats{TotalTrades: len(trades)}

	closed := closedByExitAsc(trades)
	out.ClosedTrades = len(closed)
	if len(closed) == 0 {
		return out
	}

	pnls := make([]float64, len(closed))
	for i, t := range closed {
		pnls[i] = conv.Convert(*t.PnL, t.Currency, base)
	}

	var grossWin, grossLoss float64
	for _, p := range pnls {
		out.TotalPnL += p
		switch {
		case p > 0:
			out.WinningTrades++
			grossWin += p
			if p > out.LargestWin {
				out.LargestWin = p
			}
		case p < 0:
			out.LosingTrades++
			grossLoss += p
			if p < out.LargestLoss {
				out.LargestLoss = p
			}
		}
	}
	grossLoss = math.Abs(grossLoss)

	// Zero-P&L trades stay in the denominator, depressing the displayed win
	// rate. Expectancy below uses the winner/loser split instead.
	out.WinRate = float64(out.WinningTrades) / float64(len(closed)) * 100

	switch {
	case grossLoss > 0:
		out.ProfitFactor = grossWin / grossLoss
	case grossWin > 0:
		out.ProfitFactor = math.Inf(1)
	}

	if out.WinningTrades > 0 {
		out.AverageWin = grossWin / float64(out.WinningTrades)
	}
	if out.LosingTrades > 0 {
		out.AverageLoss = grossLoss / float64(out.LosingTrades)
	}

	if decided := out.WinningTrades + out.LosingTrades; decided > 0 {
		winFrac := float64(out.WinningTrades) / float64(decided)
		out.Expectancy = winFrac*out.AverageWin - (1-winFrac)*out.AverageLoss
	}

	out.AverageRRR = averageRRR(closed)
	out.ConsecutiveWins, out.ConsecutiveLosses = longestRuns(pnls)
	out.AverageHoldingHours = averageHoldingHours(closed)

	mean := stat.Mean(pnls, nil)
	std := popStdDev(pnls, mean)
	if std > 0 {
		out.SharpeRatio = mean / std
		out.SQN = math.Sqrt(float64(len(closed))) * mean / std
	}
	if dd := downsideDeviation(pnls); dd > 0 {
		out.SortinoRatio = mean / dd
	}

	out.MaxDrawdown, out.MaxDrawdownPercent = maxDrawdown(pnls)

	return out
}

// ComputeDaily groups closed trades by UTC exit date in the base currency,
// sorted ascending by date.
func ComputeDaily(trades []trade.Trade, base string, conv *currency.Converter) []DailyStats {
	byDate := make(map[string]*DailyStats)
	for _, t := range closedByExitAsc(trades) {
		date := t.ExitTime.UTC().Format("2006-01-02")
		day := byDate[date]
		if day == nil {
			day = &DailyStats{Date: date}
			byDate[date] = day
		}
		p := conv.Convert(*t.PnL, t.Currency, base)
		day.PnL += p
		day.Trades++
		if p > 0 {
			day.Wins++
		}
	}

	out := make([]DailyStats, 0, len(byDate))
	for _, day := range byDate {
		day.WinRate = float64(day.Wins) / float64(day.Trades) * 100
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// closedByExitAsc filters to closed trades with a realized P&L and an exit
// time, ordered ascending by exit so runs and drawdowns walk real sequence.
func closedByExitAsc(trades []trade.Trade) []trade.Trade {
	var closed []trade.Trade
	for _, t := range trades {
		if t.Status == trade.Closed && t.PnL != nil && t.ExitTime != nil {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].ExitTime.Before(*closed[j].ExitTime)
	})
	return closed
}

// averageRRR is the mean reward/risk over trades that carry both levels.
// Zero risk distance contributes 0 to the sum rather than dividing by zero.
func averageRRR(closed []trade.Trade) float64 {
	var sum float64
	var n int
	for _, t := range closed {
		if t.StopLoss == nil || t.TakeProfit == nil {
			continue
		}
		n++
		risk := math.Abs(t.EntryPrice - *t.StopLoss)
		if risk == 0 {
			continue
		}
		sum += math.Abs(*t.TakeProfit-t.EntryPrice) / risk
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// longestRuns tracks the longest winning (strictly positive) and losing
// (non-positive) streaks over the exit-ordered sequence.
func longestRuns(pnls []float64) (wins, losses int) {
	var curW, curL int
	for _, p := range pnls {
		if p > 0 {
			curW++
			curL = 0
		} else {
			curL++
			curW = 0
		}
		if curW > wins {
			wins = curW
		}
		if curL > losses {
			losses = curL
		}
	}
	return wins, losses
}

func averageHoldingHours(closed []trade.Trade) float64 {
	var sum float64
	var n int
	for _, t := range closed {
		if t.EntryTime.IsZero() || t.ExitTime == nil {
			continue
		}
		d := t.ExitTime.Sub(t.EntryTime)
		if d <= 0 {
			continue
		}
		sum += d.Hours()
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// popStdDev is the population standard deviation (divide by n, not n-1).
func popStdDev(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// downsideDeviation is the RMS of P&L values below zero (minimum acceptable
// return 0). The divisor defaults to 1 when there are no losers, keeping the
// ratio finite.
func downsideDeviation(pnls []float64) float64 {
	var ss float64
	var n int
	for _, p := range pnls {
		if p < 0 {
			ss += p * p
			n++
		}
	}
	if n == 0 {
		n = 1
	}
	return math.Sqrt(ss / float64(n))
}

// maxDrawdown walks the exit-ordered P&L sequence accumulating equity from
// 0, tracking the running peak. The percentage is only evaluated while the
// peak is positive.
func maxDrawdown(pnls []float64) (dd, ddPercent float64) {
	var equity, peak float64
	for _, p := range pnls {
		equity += p
		if equity > peak {
			peak = equity
		}
		drop := peak - equity
		if drop > dd {
			dd = drop
		}
		if peak > 0 {
			if pct := drop / peak * 100; pct > ddPercent {
				ddPercent = pct
			}
		}
	}
	return dd, ddPercent
}

// HoldingTime reports one trade's holding duration, zero when it cannot be
// derived.
func HoldingTime(t trade.Trade) time.Duration {
	if t.ExitTime == nil || t.EntryTime.IsZero() {
		return 0
	}
	if d := t.ExitTime.Sub(t.EntryTime); d > 0 {
		return d
	}
	return 0
}
