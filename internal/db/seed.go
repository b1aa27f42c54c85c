package db

import (
	"context"
	"database/sql"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Seed loads a small demo catalog: an admin user, three plans and a gated
// plus a free exam with questions. Safe to run repeatedly; existing rows win.
func Seed(ctx context.Context, db *sql.DB) error {
	now := time.Now().Unix()

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), 12)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO users (id,email,name,password_hash,role,created_at)
		 VALUES ('user-admin','admin@mockverse.com','Admin User',$1,'admin',$2)
		 ON CONFLICT (id) DO NOTHING`, string(hash), now); err != nil {
		return err
	}

	plans := []struct {
		id, name, desc string
		price          float64
	}{
		{"plan-basic", "Basic Plan", "Perfect for getting started with mock tests", 500},
		{"plan-standard", "Standard Plan", "Most popular choice for serious candidates", 1000},
		{"plan-premium", "Premium Plan", "Complete preparation package", 1500},
	}
	for _, p := range plans {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO plans (id,name,description,price,is_active,created_at)
			 VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (id) DO NOTHING`,
			p.id, p.name, p.desc, p.price, true, now); err != nil {
			return err
		}
	}

	exams := []struct {
		id, name, desc, subject, planID string
		duration                        int
	}{
		{"exam-math", "Admission Test - Mathematics", "Comprehensive mathematics mock test covering all topics", "Mathematics", "plan-basic", 60},
		{"exam-english", "Admission Test - English", "English language and comprehension test", "English", "plan-basic", 45},
		{"exam-full-mock", "Admission Test - Full Mock", "Complete admission test simulation", "Mixed", "plan-standard", 120},
		{"exam-sample", "Free Sample Test", "Try the platform with a short free test", "Mathematics", "", 15},
	}
	for _, e := range exams {
		var planID any
		if e.planID != "" {
			planID = e.planID
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO exams (id,name,description,subject,duration_min,plan_id,is_active,created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) ON CONFLICT (id) DO NOTHING`,
			e.id, e.name, e.desc, e.subject, e.duration, planID, true, now); err != nil {
			return err
		}
	}

	questions := []struct {
		id, examID, text, a, b, c, d, correct string
	}{
		{"q-math-1", "exam-math", "What is the value of 2 + 2?", "3", "4", "5", "6", "B"},
		{"q-math-2", "exam-math", "What is the square root of 16?", "2", "3", "4", "5", "C"},
		{"q-math-3", "exam-math", "What is 10% of 100?", "1", "10", "20", "100", "B"},
		{"q-sample-1", "exam-sample", "What is 7 * 8?", "54", "56", "63", "64", "B"},
		{"q-sample-2", "exam-sample", "What is 100 / 4?", "20", "24", "25", "40", "C"},
	}
	for _, q := range questions {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO questions (id,exam_id,question,option_a,option_b,option_c,option_d,correct_answer,points,created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,1,$9) ON CONFLICT (id) DO NOTHING`,
			q.id, q.examID, q.text, q.a, q.b, q.c, q.d, q.correct, now); err != nil {
			return err
		}
	}
	return nil
}
