package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProviderFile struct {
	Providers []Provider `json:"providers"`
}

type Provider struct {
	ID                string `json:"id"`
	DisplayName       string `json:"display_name"`
	Email             string `json:"email"`
	Specialty         string `json:"specialty"`
	FeeCents          int64  `json:"fee_cents"`
	AcceptingBookings bool   `json:"accepting_bookings"`
	Verified          bool   `json:"verified"`
	ProfileComplete   bool   `json:"profile_complete"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/seed-providers.go <providers-file.json>")
		fmt.Println("Example: go run scripts/seed-providers.go testdata/sample-providers.json")
		os.Exit(1)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Println("❌ DATABASE_URL is required")
		os.Exit(1)
	}

	providerFile := os.Args[1]

	fmt.Printf("🌱 Seeding Provider Directory\n")
	fmt.Printf("============================\n")
	fmt.Printf("Providers file: %s\n\n", providerFile)

	data, err := os.ReadFile(providerFile)
	if err != nil {
		fmt.Printf("❌ Error reading file: %v\n", err)
		os.Exit(1)
	}

	var file ProviderFile
	if err := json.Unmarshal(data, &file); err != nil {
		fmt.Printf("❌ Error parsing JSON: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		fmt.Printf("❌ Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	seeded := 0
	for _, p := range file.Providers {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO provider_profiles
				(id, display_name, email, specialty, fee_cents, accepting_bookings, verified, profile_complete)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				display_name = EXCLUDED.display_name,
				email = EXCLUDED.email,
				specialty = EXCLUDED.specialty,
				fee_cents = EXCLUDED.fee_cents,
				accepting_bookings = EXCLUDED.accepting_bookings,
				verified = EXCLUDED.verified,
				profile_complete = EXCLUDED.profile_complete,
				updated_at = now()
		`, id, p.DisplayName, p.Email, p.Specialty, p.FeeCents, p.AcceptingBookings, p.Verified, p.ProfileComplete)
		if err != nil {
			fmt.Printf("❌ Error seeding provider %q: %v\n", p.DisplayName, err)
			os.Exit(1)
		}
		fmt.Printf("✅ %s (%s)\n", p.DisplayName, p.Specialty)
		seeded++
	}

	fmt.Printf("\n🎉 Seeded %d providers\n", seeded)
}
