package purchasing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/PPA-BE/Orders-At-Peak/internal/platform/db"
	"github.com/PPA-BE/Orders-At-Peak/internal/shared"
	"github.com/PPA-BE/Orders-At-Peak/web"
)

func newPostgresRepo(t *testing.T) (*Repository, *shared.AuditLogger) {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("orders_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(web.Migrations, web.MigrationsDir, dsn))

	pool, err := db.New(ctx, dsn, db.PoolConfig{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewRepository(pool), shared.NewAuditLogger(pool)
}

func TestRepositoryAggregation(t *testing.T) {
	repo, audit := newPostgresRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	svc := NewService(repo, audit, nil, nil, ServiceConfig{Clock: clock})
	actor := shared.Identity{Email: "ops@example.com"}

	first, err := svc.Create(ctx, actor, CreateInput{
		Vendor: Vendor{Name: "Acme"},
		Items:  []LineItem{{Qty: dec("1"), UnitPrice: dec("100")}},
	})
	require.NoError(t, err)
	second, err := svc.Create(ctx, actor, sampleInput())
	require.NoError(t, err)
	third, err := svc.Create(ctx, actor, CreateInput{Vendor: Vendor{ID: "V-9"}})
	require.NoError(t, err)

	_, err = svc.AddPayment(ctx, actor, PaymentInput{POID: first.ID, Amount: dec("40")})
	require.NoError(t, err)
	res, err := svc.AddPayment(ctx, actor, PaymentInput{POID: first.ID, Amount: dec("35")})
	require.NoError(t, err)
	require.Equal(t, "75.00", res.Reconciliation.PaidTotal.StringFixed(2))
	require.Equal(t, "38.00", res.Reconciliation.Remaining.StringFixed(2))

	_, err = svc.AddPayment(ctx, actor, PaymentInput{POID: second.ID, Amount: dec("50")})
	require.NoError(t, err)

	list, err := svc.List(ctx, ListParams{Page: 1, PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 3, list.Count)
	require.Len(t, list.Rows, 3)
	require.Equal(t, third.ID, list.Rows[0].ID)
	require.Equal(t, second.ID, list.Rows[1].ID)
	require.Equal(t, first.ID, list.Rows[2].ID)

	require.Equal(t, 0, list.Rows[0].LineItems)
	require.True(t, list.Rows[0].PaidTotal.IsZero())
	require.Equal(t, 3, list.Rows[1].LineItems)
	require.True(t, list.Rows[1].Remaining.IsZero(), "overpayment floors remaining at zero")
	require.Equal(t, 1, list.Rows[2].LineItems)
	require.Equal(t, "75.00", list.Rows[2].PaidTotal.StringFixed(2))
	require.Equal(t, "Open", list.Rows[2].StatusLabel)

	page, err := svc.List(ctx, ListParams{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 3, page.Count)
	require.Len(t, page.Rows, 1)
	require.Equal(t, first.ID, page.Rows[0].ID)

	_, err = svc.MarkPaid(ctx, actor, first.ID)
	require.NoError(t, err)
	detail, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "Open (Paid)", detail.StatusLabel())
	require.Len(t, detail.Payments, 2)

	_, err = svc.AddPayment(ctx, actor, PaymentInput{POID: "00000000-0000-0000-0000-000000000000", Amount: dec("1")})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, "not-a-uuid")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.UpdateStatus(ctx, actor, "00000000-0000-0000-0000-000000000000", "Open"), ErrNotFound)
}
