package simulator

import "RetireRisk/internal/model"

// History is the outcome of one simulated life.
type History struct {
	FinalBalance float64
	TerminalAge  float64
	Outcome      model.Outcome
	Balances     []float64 // only filled when requested
}

// RunHistory simulates one life until death or until the money runs out.
//
// Each year the retiree first faces the table's death probability for the
// floored age (certain death at TerminalAge). On death a uniform fraction of
// that year's expense is withdrawn and the life ends. Otherwise the full
// expense is withdrawn, one historical year is drawn with replacement, the
// expense is inflated by that year's inflation and the remaining assets grow
// by the stock/bond blend of that year's returns.
func RunHistory(p model.SimulationParameters, table *model.MortalityTable, market *model.MarketRecord, rng Rand, keep bool) History {
	age := p.StartingAge
	assets := p.StartingAssets
	expense := p.YearlyExpense

	var balances []float64
	if keep {
		balances = append(balances, assets)
	}

	for assets > 0 {
		if age >= model.TerminalAge || rng.Float64() <= table.Q(age) {
			assets -= expense * rng.Float64()
			if keep {
				balances = append(balances, assets)
			}
			return History{FinalBalance: assets, TerminalAge: age, Outcome: model.OutcomeDied, Balances: balances}
		}

		assets -= expense

		year := market.At(rng.IntN(market.Len()))
		expense *= 1 + year.InflationRate

		stockGains := year.StockReturn * assets * p.StockFraction
		bondGains := year.BondRate * assets * (1 - p.StockFraction)
		assets += stockGains + bondGains

		if keep {
			balances = append(balances, assets)
		}
		age++
	}

	return History{FinalBalance: assets, TerminalAge: age, Outcome: model.OutcomeDepleted, Balances: balances}
}

// Trajectory converts a kept history into its public form.
func (h History) Trajectory(startAge float64) model.HistoryTrajectory {
	return model.HistoryTrajectory{
		Balances:    h.Balances,
		StartAge:    startAge,
		TerminalAge: h.TerminalAge,
		Outcome:     h.Outcome,
	}
}
