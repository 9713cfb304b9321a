package main

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saviobatista/ais-logger/internal/db"
	"github.com/saviobatista/ais-logger/internal/db/migrations"
	"github.com/saviobatista/ais-logger/internal/parser"
	"github.com/saviobatista/ais-logger/internal/redis"
	"github.com/saviobatista/ais-logger/internal/testutils"
)

type testContainers struct {
	postgres *postgres.PostgresContainer
	redis    *tcredis.RedisContainer
}

func setupTestContainers(t *testing.T) *testContainers {
	t.Helper()
	if testing.Short() || !testutils.IsIntegrationTest() {
		t.Skip("Skipping integration test")
	}
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx, "timescale/timescaledb:latest-pg15",
		postgres.WithDatabase("ais_data"),
		postgres.WithUsername("ais"),
		postgres.WithPassword("ais_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := postgresContainer.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections"),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := redisContainer.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	return &testContainers{
		postgres: postgresContainer,
		redis:    redisContainer,
	}
}

func TestStateTracker_Integration(t *testing.T) {
	containers := setupTestContainers(t)
	ctx := context.Background()

	dbConnStr, err := containers.postgres.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get PostgreSQL connection string: %v", err)
	}

	conn, err := sql.Open("postgres", dbConnStr)
	if err != nil {
		t.Fatalf("Failed to open database connection: %v", err)
	}
	defer conn.Close()

	if _, err := migrations.New(conn).Migrate(migrations.All()); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	redisAddr, err := containers.redis.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get Redis connection string: %v", err)
	}

	dbClient, err := db.New(dbConnStr)
	if err != nil {
		t.Fatalf("Failed to create database client: %v", err)
	}
	defer dbClient.Close()

	redisClient, err := redis.New(redisAddr)
	if err != nil {
		t.Fatalf("Failed to create Redis client: %v", err)
	}
	defer redisClient.Close()

	tracker := NewStateTracker(dbClient, redisClient, parser.DefaultOptions())
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := tracker.Start(runCtx); err != nil {
		t.Fatalf("Failed to start tracker: %v", err)
	}

	now := time.Now().UTC()
	lines := append(
		testutils.StaticVoyageData(211331640, "7", "SEA WIND", "DJ7890", "HAMBURG"),
		testutils.PositionReport(211331640, 53.54, 9.98, 12.5),
	)
	for _, raw := range lines {
		if err := tracker.ProcessMessage(message(raw, "test-source", now)); err != nil {
			t.Fatalf("ProcessMessage() error = %v", err)
		}
	}

	vessel, err := dbClient.GetVessel(211331640)
	if err != nil {
		t.Fatalf("GetVessel() error = %v", err)
	}
	if vessel.Name != "SEA WIND" || vessel.Callsign != "DJ7890" {
		t.Errorf("unexpected vessel %+v", vessel)
	}

	voyages, err := dbClient.GetActiveVoyages()
	if err != nil {
		t.Fatalf("GetActiveVoyages() error = %v", err)
	}
	if len(voyages) != 1 || voyages[0].Name != "SEA WIND" {
		t.Fatalf("unexpected voyages %+v", voyages)
	}

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM vessel_states WHERE mmsi = $1`, 211331640).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 stored state, got %d", count)
	}

	cached, err := redisClient.GetVesselState(ctx, 211331640)
	if err != nil || cached == nil {
		t.Fatalf("GetVesselState() = %v, %v", cached, err)
	}
	if cached.SessionID != voyages[0].SessionID {
		t.Errorf("cached session %q, want %q", cached.SessionID, voyages[0].SessionID)
	}

	if err := tracker.Stats().Persist(); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	rows, err := dbClient.GetSystemStats(now.Add(-time.Minute), time.Now().Add(time.Minute))
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetSystemStats() = %d rows, %v", len(rows), err)
	}
	if rows[0]["decoded_messages"].(int64) != 2 {
		t.Errorf("decoded_messages = %v", rows[0]["decoded_messages"])
	}
}
