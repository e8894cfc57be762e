package postgres

import (
	"fmt"
	"strings"

	"github.com/okian/peerfeedback/internal/domain/rating"
)

// Rating columns keep the legacy spreadsheet names so existing tables can
// be read without a rename.
var ratingColumns = func() []string {
	cols := make([]string, 0, rating.Count)
	for _, d := range rating.All() {
		cols = append(cols, d.Alias())
	}
	return cols
}()

func schemaSQL() string {
	var b strings.Builder
	b.WriteString(`CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL CHECK (role IN ('Admin', 'User')),
	position      TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS assessments (
	id           TEXT PRIMARY KEY,
	evaluator_id TEXT NOT NULL REFERENCES users (id),
	target_id    TEXT NOT NULL REFERENCES users (id),
`)
	for _, c := range ratingColumns {
		fmt.Fprintf(&b, "\t%s SMALLINT NOT NULL CHECK (%s BETWEEN %d AND %d),\n", c, c, rating.MinScore, rating.MaxScore)
	}
	b.WriteString(`	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (evaluator_id, target_id),
	CHECK (evaluator_id <> target_id)
);
CREATE INDEX IF NOT EXISTS assessments_target_idx ON assessments (target_id);
`)
	return b.String()
}

const assessmentColumnsPrefix = "id, evaluator_id, target_id, "

func selectAssessmentsSQL(where string) string {
	q := "SELECT " + assessmentColumnsPrefix + strings.Join(ratingColumns, ", ") + ", created_at FROM assessments"
	if where != "" {
		q += " WHERE " + where
	}
	return q + " ORDER BY created_at, id"
}

// insertAssessmentSQL returns the insert statement for the given policy.
// Under reject a conflict returns no row; under update the existing row keeps
// its id and takes the new rating and timestamp.
func insertAssessmentSQL(update bool) string {
	cols := assessmentColumnsPrefix + strings.Join(ratingColumns, ", ") + ", created_at"
	placeholders := make([]string, 0, 4+rating.Count)
	for i := 1; i <= 4+rating.Count; i++ {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i))
	}
	q := "INSERT INTO assessments (" + cols + ") VALUES (" + strings.Join(placeholders, ", ") + ") ON CONFLICT (evaluator_id, target_id) "
	if !update {
		return q + "DO NOTHING RETURNING id, created_at"
	}
	sets := make([]string, 0, rating.Count+1)
	for _, c := range ratingColumns {
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	sets = append(sets, "created_at = EXCLUDED.created_at")
	return q + "DO UPDATE SET " + strings.Join(sets, ", ") + " RETURNING id, created_at"
}
