package collector

import "RetireRisk/internal/model"

// LifeTableProvider resolves a mortality key to a life table.
type LifeTableProvider interface {
	LifeTable(key model.MortalityKey) (*model.MortalityTable, error)
	Name() string
}

// MarketProvider loads a historical market record.
type MarketProvider interface {
	Market() (*model.MarketRecord, error)
	Name() string
}
