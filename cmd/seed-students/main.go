package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/snbp-backend/internal/config"
	"github.com/stemsi/snbp-backend/internal/database"
	"github.com/stemsi/snbp-backend/internal/logger"
	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/repository"
)

// Seeds one major (RPL) with 50 students and five semesters of grades so the
// ranking and quota paths have realistic data to chew on in dev.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	majorRepo := repository.NewMajorRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	gradeRepo := repository.NewGradeRepository(pool)

	fmt.Println("=== Seeding 50 Students ===")

	majorCode := "RPL"

	major, err := majorRepo.GetByCode(ctx, majorCode)
	if err != nil {
		if err == pgx.ErrNoRows {
			fmt.Println("Major RPL not found. Creating it...")
			pct := 50.0
			minAvg := 75.0
			major = &model.Major{
				Code:            majorCode,
				LongName:        "Rekayasa Perangkat Lunak",
				QuotaPercentage: &pct,
				MinAverage:      &minAvg,
			}
			if err := majorRepo.Create(ctx, major); err != nil {
				log.Fatal().Err(err).Msg("Failed to create major")
			}
			fmt.Printf("Created major with ID: %d\n", major.ID)
		} else {
			log.Fatal().Err(err).Msg("Failed to check existing major")
		}
	} else {
		fmt.Printf("Found existing major with ID: %d\n", major.ID)
	}

	names := []string{
		"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
		"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
		"Hendra Gunawan", "Ika Sari", "Jamal Mirdad", "Kiki Fatmala", "Lukman Hakim",
		"Maya Septiana", "Nanda Pratama", "Oki Setiana", "Putri Dian", "Qori Maharani",
		"Rafi Ahmad", "Siska Saraswati", "Toni Setiawan", "Umi Kalsum", "Vina Panduwinata",
		"Wahyu Hidayat", "Xena Maharani", "Yudi Pratama", "Zaki Anwar", "Alifia Zahra",
		"Bagas Saputra", "Citra Kirana", "Dimas Anggara", "Elisa Novita", "Fikri Maulana",
		"Gali Rakasiwi", "Hani Hanifah", "Iqbal Ramadhan", "Jasmine Azzahra", "Kevin Sanjaya",
		"Larasati Dewi", "Miko Pambudi", "Nia Ramadhani", "Oscar Lawalata", "Puput Melati",
		"Reza Rahadian", "Sari Nila", "Tigor Siahaan", "Utari Maharani", "Vicky Prasetyo",
	}

	subjects := []string{"Matematika", "Bahasa Indonesia", "Bahasa Inggris", "Pemrograman Dasar", "Basis Data"}

	rng := rand.New(rand.NewSource(42))

	created := 0
	for i, name := range names {
		nisn := fmt.Sprintf("00512%05d", i+1)

		student := &model.Student{
			NISN:      nisn,
			Name:      name,
			MajorID:   major.ID,
			BirthDate: time.Date(2008, time.Month(1+i%12), 1+i%28, 0, 0, 0, 0, time.UTC),
			Status:    model.DataStatusVerified,
		}
		if err := studentRepo.Create(ctx, student); err != nil {
			if err == repository.ErrDuplicateNISN {
				fmt.Printf("Skipping %s (%s): already seeded\n", name, nisn)
				continue
			}
			log.Fatal().Err(err).Str("nisn", nisn).Msg("Failed to create student")
		}

		// Each student gets a base aptitude so averages spread out and the
		// quota cut-off lands somewhere interesting.
		base := 65.0 + rng.Float64()*30.0
		for semester := 1; semester <= 5; semester++ {
			for _, subject := range subjects {
				value := base + rng.Float64()*8.0 - 4.0
				if value > 100 {
					value = 100
				}
				if value < 0 {
					value = 0
				}
				grade := &model.Grade{
					StudentID: student.ID,
					Semester:  semester,
					Subject:   subject,
					Value:     value,
				}
				if err := gradeRepo.Upsert(ctx, grade); err != nil {
					log.Fatal().Err(err).Str("nisn", nisn).Msg("Failed to upsert grade")
				}
			}
		}
		created++
	}

	fmt.Printf("Done. Created %d students with grades under major %s.\n", created, majorCode)
	fmt.Println("Run a recalculation (POST /api/v1/admin/recalc scope=MAJOR) to rank them.")
}
