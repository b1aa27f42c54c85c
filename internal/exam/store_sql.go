package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLStore implements Store on database/sql, working against both the
// modernc sqlite driver and pgx.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exams (id,name,description,subject,duration_min,plan_id,is_active,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (id) DO UPDATE SET
		   name=EXCLUDED.name, description=EXCLUDED.description, subject=EXCLUDED.subject,
		   duration_min=EXCLUDED.duration_min, plan_id=EXCLUDED.plan_id, is_active=EXCLUDED.is_active`,
		e.ID, e.Name, e.Description, e.Subject, e.DurationMin, nullStr(e.PlanID), e.IsActive, e.CreatedAt.Unix())
	return err
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,name,description,subject,duration_min,plan_id,is_active,created_at
		 FROM exams WHERE id=$1`, id)
	return scanExam(row)
}

func (s *SQLStore) ListExams(ctx context.Context, opts ListOpts) ([]ExamSummary, error) {
	q := `SELECT e.id,e.name,e.description,e.subject,e.duration_min,e.plan_id,e.created_at,
	             (SELECT COUNT(*) FROM questions WHERE exam_id=e.id)
	      FROM exams e`
	args := []any{}
	where := ""
	if opts.ActiveOnly {
		where = " WHERE e.is_active"
	}
	if len(opts.PlanIDs) > 0 {
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += "e.plan_id IN ("
		for i, id := range opts.PlanIDs {
			if i > 0 {
				where += ","
			}
			args = append(args, id)
			where += fmt.Sprintf("$%d", len(args))
		}
		where += ")"
	}
	q += where + " ORDER BY e.created_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, opts.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ExamSummary{}
	for rows.Next() {
		var es ExamSummary
		var planID sql.NullString
		var created int64
		if err := rows.Scan(&es.ID, &es.Name, &es.Description, &es.Subject,
			&es.DurationMin, &planID, &created, &es.QuestionCount); err != nil {
			return nil, err
		}
		es.PlanID = planID.String
		es.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, es)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (id,exam_id,question,option_a,option_b,option_c,option_d,correct_answer,points,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		q.ID, q.ExamID, q.Question, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
		string(q.CorrectAnswer), q.Points, q.CreatedAt.Unix())
	return err
}

func (s *SQLStore) ListQuestions(ctx context.Context, examID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,exam_id,question,option_a,option_b,option_c,option_d,correct_answer,points,created_at
		 FROM questions WHERE exam_id=$1 ORDER BY created_at, id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Question{}
	for rows.Next() {
		var q Question
		var ans string
		var created int64
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Question, &q.OptionA, &q.OptionB,
			&q.OptionC, &q.OptionD, &ans, &q.Points, &created); err != nil {
			return nil, err
		}
		q.CorrectAnswer = Option(ans)
		q.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) CountQuestions(ctx context.Context, examID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE exam_id=$1`, examID).Scan(&n)
	return n, err
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (id,user_id,exam_id,total_questions,started_at,correct_count,wrong_count)
		 VALUES ($1,$2,$3,$4,$5,0,0)`,
		a.ID, a.UserID, a.ExamID, a.TotalQuestions, a.StartedAt.Unix())
	return err
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, attemptSelect+` WHERE id=$1`, id)
	return scanAttempt(row)
}

func (s *SQLStore) ActiveAttempt(ctx context.Context, userID, examID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		attemptSelect+` WHERE user_id=$1 AND exam_id=$2 AND submitted_at IS NULL`, userID, examID)
	return scanAttempt(row)
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	q := attemptSelect
	args := []any{}
	where := ""
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		where = fmt.Sprintf(" WHERE user_id=$%d", len(args))
	}
	if opts.ExamID != "" {
		args = append(args, opts.ExamID)
		if where == "" {
			where = fmt.Sprintf(" WHERE exam_id=$%d", len(args))
		} else {
			where += fmt.Sprintf(" AND exam_id=$%d", len(args))
		}
	}
	q += where + " ORDER BY started_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, opts.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FinalizeAttempt claims the attempt and writes its answers in one
// transaction. The conditional update is the double-grading guard: losers of
// the race see zero rows affected and get ErrConflict.
func (s *SQLStore) FinalizeAttempt(ctx context.Context, attemptID string, fin Finalization, answers []Answer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE attempts
		 SET submitted_at=$1, time_spent_sec=$2, score=$3, correct_count=$4, wrong_count=$5
		 WHERE id=$6 AND submitted_at IS NULL`,
		fin.SubmittedAt.Unix(), fin.TimeSpentSec, fin.Score, fin.CorrectCount, fin.WrongCount, attemptID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("attempt %s already submitted: %w", attemptID, ErrConflict)
	}

	for _, a := range answers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO answers (id,attempt_id,question_id,user_id,selected_option,is_correct)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			a.ID, a.AttemptID, a.QuestionID, a.UserID, string(a.SelectedOption), a.IsCorrect); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ListAnswers(ctx context.Context, attemptID string) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,attempt_id,question_id,user_id,selected_option,is_correct
		 FROM answers WHERE attempt_id=$1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Answer{}
	for rows.Next() {
		var a Answer
		var sel string
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.UserID, &sel, &a.IsCorrect); err != nil {
			return nil, err
		}
		a.SelectedOption = Option(sel)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) ExpiredAttempts(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]Attempt, error) {
	cutoff := now.Add(-grace).Unix()
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id,a.user_id,a.exam_id,a.total_questions,a.started_at,a.submitted_at,
		        a.time_spent_sec,a.score,a.correct_count,a.wrong_count
		 FROM attempts a JOIN exams e ON e.id=a.exam_id
		 WHERE a.submitted_at IS NULL AND a.started_at + e.duration_min*60 < $1
		 ORDER BY a.started_at LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const attemptSelect = `SELECT id,user_id,exam_id,total_questions,started_at,submitted_at,
       time_spent_sec,score,correct_count,wrong_count FROM attempts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var started int64
	var submitted, spent, score sql.NullInt64
	err := row.Scan(&a.ID, &a.UserID, &a.ExamID, &a.TotalQuestions, &started,
		&submitted, &spent, &score, &a.CorrectCount, &a.WrongCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, fmt.Errorf("attempt: %w", ErrNotFound)
		}
		return Attempt{}, err
	}
	a.StartedAt = time.Unix(started, 0).UTC()
	if submitted.Valid {
		t := time.Unix(submitted.Int64, 0).UTC()
		a.SubmittedAt = &t
	}
	if spent.Valid {
		v := int(spent.Int64)
		a.TimeSpentSec = &v
	}
	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	return a, nil
}

func scanExam(row rowScanner) (Exam, error) {
	var e Exam
	var planID sql.NullString
	var created int64
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Subject, &e.DurationMin,
		&planID, &e.IsActive, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, fmt.Errorf("exam: %w", ErrNotFound)
		}
		return Exam{}, err
	}
	e.PlanID = planID.String
	e.CreatedAt = time.Unix(created, 0).UTC()
	return e, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
