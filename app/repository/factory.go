package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all repository implementations over one DB handle.
type Repositories struct {
	Academy      AcademyRepository
	Plan         PlanRepository
	Subscription SubscriptionRepository
	Payment      PaymentRepository
	History      HistoryRepository
	User         UserRepository
	Player       PlayerRepository
	Transfer     TransferRepository
	Document     DocumentRepository
	Ledger       LedgerRepository
}

// NewRepositories creates all repositories bound to the given DB handle.
// Pass a transaction handle to get transaction-scoped repositories.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Academy:      NewAcademyRepository(db),
		Plan:         NewPlanRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Payment:      NewPaymentRepository(db),
		History:      NewHistoryRepository(db),
		User:         NewUserRepository(db),
		Player:       NewPlayerRepository(db),
		Transfer:     NewTransferRepository(db),
		Document:     NewDocumentRepository(db),
		Ledger:       NewLedgerRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

var (
	globalFactory   *Factory
	globalFactoryMu sync.Mutex
)

// InitGlobalFactory wires the process-wide factory used by controllers.
func InitGlobalFactory(db *gorm.DB) {
	globalFactoryMu.Lock()
	defer globalFactoryMu.Unlock()
	globalFactory = NewFactory(db)
}

// GetGlobalFactory returns the process-wide factory.
func GetGlobalFactory() *Factory {
	globalFactoryMu.Lock()
	defer globalFactoryMu.Unlock()
	return globalFactory
}
