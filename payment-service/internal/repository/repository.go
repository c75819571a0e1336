package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/canteen/payment-service/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var ErrDuplicateOrder = errors.New("order for this intent already exists")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type Repository struct {
	db *sqlx.DB
}

type IntentStore interface {
	CreateIntent(ctx context.Context, intent *d.PaymentIntent) (*d.PaymentIntent, bool, error)
	GetIntent(ctx context.Context, id string) (*d.PaymentIntent, error)
	GetOpenIntentByKey(ctx context.Context, key string) (*d.PaymentIntent, error)
	GetOpenIntentByHash(ctx context.Context, userID, hash string) (*d.PaymentIntent, error)
	TransitionIntent(ctx context.Context, id string, from, to d.IntentState) error
	SetGatewayReference(ctx context.Context, id, ref string) (string, error)
	TouchIntent(ctx context.Context, id string) error
	RecordVerificationFailure(ctx context.Context, id string) (int, error)
	FinalizeIntent(ctx context.Context, intentID, paymentRef string, order *d.Order) error
	ExpireStaleIntents(ctx context.Context, idleBefore time.Time) ([]string, error)
}

type OrderStore interface {
	GetOrderByID(ctx context.Context, id string) (*d.Order, error)
	GetOrderByIntentID(ctx context.Context, intentID string) (*d.Order, error)
	ListActiveOrders(ctx context.Context, merchantID string) ([]*d.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to d.OrderStatus) (*d.Order, error)
}

// MenuStore is the merchant catalog: counters and their items.
type MenuStore interface {
	GetMerchant(ctx context.Context, id string) (*d.Merchant, error)
	UpsertMerchant(ctx context.Context, m d.Merchant) error
	GetMenuItems(ctx context.Context, merchantID string, ids []string) ([]d.MenuItem, error)
	UpsertMenuItem(ctx context.Context, item d.MenuItem) error
}

type OutboxStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
}

type RepoInterface interface {
	IntentStore
	OrderStore
	MenuStore
	OutboxStore
	Close() error
	RunMigrations(*Credentials) error
}

func (c *Credentials) dsn() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName)
}

// NewRepository connects and pings; the pool is sized for one service instance.
func NewRepository(cred *Credentials) (*Repository, error) {
	db, err := sqlx.Connect("postgres", cred.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db.DB, &postgres.Config{
		MigrationsTable: "payment_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func openStates() interface{} {
	states := make([]string, 0, len(d.OpenIntentStates))
	for _, s := range d.OpenIntentStates {
		states = append(states, string(s))
	}
	return pq.Array(states)
}
