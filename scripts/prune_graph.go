package main

import (
	"context"
	"os"
	"time"

	"onchain-intel/internal/infrastructure/config"
	"onchain-intel/internal/infrastructure/database"
	"onchain-intel/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Transfers not seen again within this window are removed, then wallets left without edges
const retention = 90 * 24 * time.Hour

func main() {
	log, err := logger.NewLogger("info", os.Getenv("APP_ENV"))
	if err != nil {
		panic(err)
	}
	log = log.WithComponent("prune-graph")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	neo4jClient := database.NewNeo4JClient(&cfg.Neo4J, log)

	ctx := context.Background()
	if err := neo4jClient.Connect(ctx); err != nil {
		log.Fatal("Failed to connect to Neo4j", zap.Error(err))
	}
	defer neo4jClient.Close(ctx)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	session := neo4jClient.NewSession(ctxWithTimeout)
	defer session.Close(ctxWithTimeout)

	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339)
	log.Info("Connected to Neo4j, pruning interaction graph", zap.String("cutoff", cutoff))

	steps := []struct {
		name  string
		query string
	}{
		{
			name: "stale_transfers",
			query: `
				MATCH ()-[r:TRANSFERRED]->()
				WHERE r.seen_at < datetime($cutoff)
				DELETE r
				RETURN count(r) as deleted`,
		},
		{
			name: "isolated_wallets",
			query: `
				MATCH (w:Wallet)
				WHERE NOT (w)--() AND w.last_seen < datetime($cutoff)
				DELETE w
				RETURN count(w) as deleted`,
		},
	}

	for _, step := range steps {
		deleted, err := neo4j.ExecuteWrite(ctxWithTimeout, session, func(tx neo4j.ManagedTransaction) (int64, error) {
			res, err := tx.Run(ctxWithTimeout, step.query, map[string]interface{}{"cutoff": cutoff})
			if err != nil {
				return 0, err
			}
			record, err := res.Single(ctxWithTimeout)
			if err != nil {
				return 0, err
			}
			n, _, err := neo4j.GetRecordValue[int64](record, "deleted")
			return n, err
		})
		if err != nil {
			log.Error("Prune step failed", zap.String("step", step.name), zap.Error(err))
			log.Flush()
			os.Exit(1)
		}
		log.Info("Prune step complete", zap.String("step", step.name), zap.Int64("deleted", deleted))
	}

	log.Info("Prune complete")
	log.Flush()
}
