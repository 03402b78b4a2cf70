// Command geminikey stores the Gemini API key in the integration_tokens
// table so the API and the backfill worker can pick it up without a restart.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"menulens/internal/infra"
	"menulens/internal/infra/credentials"
)

func main() {
	keyFlag := flag.String("key", "", "Gemini API key (falls back to GEMINI_API_KEY)")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(strings.TrimSpace(*keyFlag)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("gemini api key stored")
}

func run(key string) error {
	if key == "" {
		key = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if key == "" {
		return fmt.Errorf("a key is required, pass -key or set GEMINI_API_KEY")
	}
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("open database pool: %w", err)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli", "geminikey")
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))
	if err := store.SetGeminiAPIKey(ctx, key); err != nil {
		return fmt.Errorf("store gemini key: %w", err)
	}
	return nil
}
