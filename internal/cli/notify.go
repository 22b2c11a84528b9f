package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vietddude/tmdbproxy/internal/core/config"
	"github.com/vietddude/tmdbproxy/internal/notify"
)

// Exit codes for the notify command.
const (
	ExitDelivered    = 0
	ExitNotDelivered = 1
	ExitUsage        = 2
)

var notifyCmd = &cobra.Command{
	Use:   "notify <evaluation_url> <payload.json>",
	Short: "POST a JSON payload to a URL with retries",
	Long: `Sends the payload file as JSON to the evaluation URL, retrying with
exponential backoff. Attempts, per-attempt timeout and initial delay come from
the notify and retry sections of the config file when present. Exits 0 when
delivered, 1 when every attempt failed and 2 on bad arguments or an unreadable
payload.`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		cfg, err := config.Load(cfgPath)
		if err != nil {
			setupLogging("")
			slog.Error("Failed to load config", "error", err)
			os.Exit(ExitUsage)
		}
		setupLogging(cfg.Logging.Level)
		os.Exit(RunNotify(cmd.Context(), notify.New(notify.ConfigFrom(cfg)), args, cmd.ErrOrStderr()))
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}

// RunNotify delivers the payload named by args and returns the process exit code.
func RunNotify(ctx context.Context, n *notify.Notifier, args []string, stderr io.Writer) int {
	if len(args) != 2 {
		_, _ = fmt.Fprintln(stderr, "usage: tmdbproxy notify <evaluation_url> <payload.json>")
		return ExitUsage
	}
	url, path := args[0], args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "cannot read payload file %s: %v\n", path, err)
		return ExitUsage
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		_, _ = fmt.Fprintf(stderr, "payload file %s is not valid JSON: %v\n", path, err)
		return ExitUsage
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if !n.Notify(ctx, url, payload) {
		slog.Error("Notification not delivered", "url", url)
		return ExitNotDelivered
	}
	slog.Info("Notification delivered", "url", url)
	return ExitDelivered
}

