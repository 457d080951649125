package testutil

import (
	"context"
	"time"

	"github.com/flexprice/reconciler/internal/config"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/flexprice/reconciler/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory repositories and fakes used by service tests
type Stores struct {
	OrderRepo     *InMemoryOrderStore
	OrderItemRepo *InMemoryOrderItemStore
	SubRepo       *InMemorySubscriptionStore
	StorageRepo   *InMemoryStorageGrantStore
	HouseholdRepo *InMemoryHouseholdStore
	UserRepo      *InMemoryUserStore
	CatalogRepo   *InMemoryCatalogStore
	PaymentRepo   *InMemoryPaymentStore
	ChecklistRepo *InMemoryChecklistStore

	Provider *FakeProvider
	Identity *FakeIdentity
	Ledger   *FakeLedger
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	db     *MockPostgresClient
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()
	s.logger = logger.NewNopLogger()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = types.SetRequestID(context.Background(), types.GenerateUUID())
	s.config = config.GetDefaultConfig()
	s.now = time.Now().UTC().Truncate(time.Second)
	s.setupStores()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	items := NewInMemoryOrderItemStore()
	s.stores = Stores{
		OrderRepo:     NewInMemoryOrderStore(items),
		OrderItemRepo: items,
		SubRepo:       NewInMemorySubscriptionStore(),
		StorageRepo:   NewInMemoryStorageGrantStore(),
		HouseholdRepo: NewInMemoryHouseholdStore(),
		UserRepo:      NewInMemoryUserStore(),
		CatalogRepo:   NewInMemoryCatalogStore(),
		PaymentRepo:   NewInMemoryPaymentStore(),
		ChecklistRepo: NewInMemoryChecklistStore(),
		Provider:      NewFakeProvider(),
		Identity:      NewFakeIdentity(),
		Ledger:        NewFakeLedger(),
	}
	s.db = NewMockPostgresClient(s.logger)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.OrderRepo.Clear()
	s.stores.OrderItemRepo.Clear()
	s.stores.SubRepo.Clear()
	s.stores.StorageRepo.Clear()
	s.stores.HouseholdRepo.Clear()
	s.stores.UserRepo.Clear()
	s.stores.CatalogRepo.Clear()
	s.stores.PaymentRepo.Clear()
	s.stores.ChecklistRepo.Clear()
	s.stores.Provider.Clear()
	s.stores.Identity.Clear()
	s.stores.Ledger.Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the frozen clock of the current test
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
