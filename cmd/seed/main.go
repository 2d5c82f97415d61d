package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/hospital-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedUsers(context.Background(), pool); err != nil {
		log.Fatalf("seed users: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedMedicines(context.Background(), pool, 200); err != nil {
		log.Fatalf("seed medicines: %v", err)
	}

	log.Println("seed complete")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) error {
	counts := map[string]int{
		"admin":        2,
		"doctor":       25,
		"nurse":        40,
		"receptionist": 8,
		"pharmacist":   5,
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	total := 0
	for role, count := range counts {
		for i := 0; i < count; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, username, full_name, role)
				VALUES ($1, $2, $3, $4)
			`, uuid.New(), fmt.Sprintf("%s.%s%d", role, gofakeit.Username(), i), gofakeit.Name(), role)
			if err != nil {
				return err
			}
			total++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Printf("users seeded: %d", total)
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500
	year := time.Now().Format("2006")

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, patient_id, first_name, last_name, email, phone)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, uuid.New(), fmt.Sprintf("PAT%s%04d", year, i+1),
				gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Email(), gofakeit.Phone())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
		log.Printf("patients seeded: %d/%d", end, count)
	}

	// keep the id generator ahead of the seeded range
	_, err := pool.Exec(ctx, `
		INSERT INTO id_sequences (prefix, bucket, value)
		VALUES ('PAT', $1, $2)
		ON CONFLICT (prefix, bucket) DO UPDATE SET value = GREATEST(id_sequences.value, $2)
	`, year, count)
	return err
}

func seedMedicines(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d medicines", count)

	strengths := []string{"250mg", "500mg", "850mg", "10mg", "20mg", "5ml"}
	names := []string{
		"Amoxicillin", "Paracetamol", "Ibuprofen", "Metformin", "Omeprazole",
		"Amlodipine", "Atorvastatin", "Ceftriaxone", "Azithromycin", "Insulin Glargine",
		"Salbutamol", "Losartan", "Diclofenac", "Ciprofloxacin", "Doxycycline",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		minimum := gofakeit.Number(10, 50)
		stock := gofakeit.Number(minimum+1, 500)
		expiry := time.Now().AddDate(0, gofakeit.Number(2, 24), 0)

		// a slice of the inventory exercises the monitor sweeps
		switch {
		case i%10 == 0:
			stock = gofakeit.Number(0, minimum)
		case i%10 == 1:
			expiry = time.Now().AddDate(0, 0, gofakeit.Number(1, 25))
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO medicines (id, name, strength, stock_quantity, minimum_stock_level, expiry_date, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, true)
		`, uuid.New(),
			names[gofakeit.Number(0, len(names)-1)],
			strengths[gofakeit.Number(0, len(strengths)-1)],
			stock, minimum, expiry.Format("2006-01-02"))
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Println("medicines seeded")
	return nil
}
