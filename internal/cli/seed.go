package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/tmdbproxy/internal/fallback"
	redisclient "github.com/vietddude/tmdbproxy/internal/infra/redis"
)

var seedCmd = &cobra.Command{
	Use:   "seed-fallbacks",
	Short: "Write the built-in fallback documents to Redis",
	Long: `Copies the embedded fallback documents to Redis so they can be edited in
place. Running proxies pick up overrides on their next start.`,
	Run: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if !cfg.Redis.Enabled() {
		slog.Error("Redis is not configured (redis.url or REDIS_URL)")
		os.Exit(1)
	}

	rdb, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rdb.Close()
	}()

	store, err := fallback.New()
	if err != nil {
		slog.Error("Failed to load fallback documents", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := seedFallbacks(ctx, rdb, store); err != nil {
		slog.Error("Failed to seed fallbacks", "error", err)
		os.Exit(1)
	}
}

func seedFallbacks(ctx context.Context, rdb *redisclient.Client, store *fallback.Store) error {
	for kind, doc := range store.Documents() {
		if err := rdb.SetFallbackDocument(ctx, kind, doc); err != nil {
			return err
		}
		slog.Info("Seeded fallback document", "kind", kind, "bytes", len(doc))
	}
	return nil
}
