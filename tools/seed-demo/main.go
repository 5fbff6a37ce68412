// Dev utility: seeds one demo business with working hours, a small service
// catalogue and a customer, then prints the generated ids. Run it against a
// migrated database to exercise the API by hand.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	businessID := uuid.NewString()
	customerID := uuid.NewString()

	tx, err := conn.Begin(ctx)
	if err != nil {
		log.Fatalf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO businesses (id, name, auto_approve, allow_cancellation, cancellation_time_limit_hours)
		VALUES ($1, 'Shear Genius Salon', false, true, 24)
	`, businessID)
	if err != nil {
		log.Fatalf("insert business: %v", err)
	}

	// Monday through Saturday, 09:00 to 17:00. Sunday closed.
	for wd := 1; wd <= 6; wd++ {
		_, err = tx.Exec(ctx, `
			INSERT INTO business_hours (business_id, weekday, is_open, open_minute, close_minute)
			VALUES ($1, $2, true, $3, $4)
		`, businessID, wd, 9*60, 17*60)
		if err != nil {
			log.Fatalf("insert hours: %v", err)
		}
	}

	services := []struct {
		name     string
		duration int
		price    string
	}{
		{"Haircut", 45, "50.00"},
		{"Color", 90, "120.00"},
		{"Blowout", 30, "35.00"},
	}
	serviceIDs := make([]string, 0, len(services))
	for i, svc := range services {
		id := uuid.NewString()
		serviceIDs = append(serviceIDs, id)
		_, err = tx.Exec(ctx, `
			INSERT INTO services (id, business_id, name, duration_minutes, price, position)
			VALUES ($1, $2, $3, $4, $5::numeric, $6)
		`, id, businessID, svc.name, svc.duration, svc.price, i)
		if err != nil {
			log.Fatalf("insert service: %v", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO customers (id, name, phone, email)
		VALUES ($1, 'Dana Reyes', '+15551230000', 'dana@example.com')
	`, customerID)
	if err != nil {
		log.Fatalf("insert customer: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("commit: %v", err)
	}

	fmt.Println("business_id:", businessID)
	fmt.Println("customer_id:", customerID)
	for i, id := range serviceIDs {
		fmt.Printf("service_id (%s): %s\n", services[i].name, id)
	}
}
