package port

import "context"

// Repositories is a set of stores sharing one database handle.
type Repositories struct {
	Orders     OrderRepository
	Slips      SlipRepository
	Catalog    CatalogStore
	Stock      StockLedger
	Rates      CommodityRateStore
	Vocabulary StatusVocabulary
}

// UnitOfWork runs fn with repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(repos Repositories) error) error
	// Repositories returns stores bound to the pool, for reads outside a transaction.
	Repositories() Repositories
}
