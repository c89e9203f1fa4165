//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dtroode/vaultdrop-server/internal/model"
	repo "github.com/dtroode/vaultdrop-server/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "vaultdrop_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/vaultdrop_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestRepositories_Entitlements(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	purchases := repo.NewPurchaseRepository(conn)
	reveals := repo.NewRevealRepository(conn)
	periods := repo.NewPeriodRepository(conn)

	userID := uuid.New()
	bundle := model.Bundle{UserID: userID, Tier: model.TierPremium, PeriodID: "week-1"}

	t.Run("seeded active period", func(t *testing.T) {
		active, err := periods.GetActive(ctx)
		require.NoError(t, err)
		require.Equal(t, "week-1", active.ID)

		all, err := periods.List(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, all)

		_, err = periods.Get(ctx, "week-404")
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("reveal without purchase is refused", func(t *testing.T) {
		_, err := reveals.InsertIfAbsent(ctx, model.Reveal{
			UserID: userID, Tier: model.TierPremium, MediaKey: "premium-1", ItemIndex: 1, PeriodID: "week-1",
		})
		require.ErrorIs(t, err, model.ErrNotEntitled)
	})

	t.Run("concurrent purchase inserts keep one row", func(t *testing.T) {
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			inserted int
			dupes    int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := purchases.InsertIfAbsent(ctx, model.Purchase{
					UserID: userID, Tier: model.TierPremium, PeriodID: "week-1", CheckoutSessionID: "cs_test",
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					inserted++
				case err == model.ErrAlreadyExists:
					dupes++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, inserted)
		require.Equal(t, 7, dupes)

		got, err := purchases.Get(ctx, bundle)
		require.NoError(t, err)
		require.Equal(t, "cs_test", got.CheckoutSessionID)

		list, err := purchases.ListByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("reveals are unique per item", func(t *testing.T) {
		rv := model.Reveal{UserID: userID, Tier: model.TierPremium, MediaKey: "premium-1", ItemIndex: 1, PeriodID: "week-1"}
		_, err := reveals.InsertIfAbsent(ctx, rv)
		require.NoError(t, err)

		_, err = reveals.InsertIfAbsent(ctx, rv)
		require.ErrorIs(t, err, model.ErrAlreadyExists)

		list, err := reveals.ListForBundle(ctx, bundle)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, 1, list[0].ItemIndex)
	})

	t.Run("reset removes everything for the user", func(t *testing.T) {
		n, err := reveals.DeleteByUser(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		n, err = purchases.DeleteByUser(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		_, err = purchases.Get(ctx, bundle)
		require.ErrorIs(t, err, model.ErrNotFound)
	})
}
