// Command createuser provisions an API credential. Credentials are
// created out-of-band by an administrator; the server only ever reads
// them.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"callscribe/internal/auth"
	"callscribe/internal/config"
	"callscribe/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "Usage: createuser <username> <password>")
		os.Exit(1)
	}
	username, password := os.Args[1], os.Args[2]

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx, conn); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	_, err = conn.ExecContext(ctx,
		`INSERT INTO api_keys (username, hashed_password) VALUES ($1, $2)`,
		username, hash)
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("User %s created successfully.\n", username)
}
