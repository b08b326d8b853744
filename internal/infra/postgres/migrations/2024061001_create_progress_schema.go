package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_progress_schema.sql
var createProgressSchemaSQL string

// Migrations holds every schema change of the progress store.
var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createProgressSchemaSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS
				activity_logs, assignment_submissions, quiz_attempts, lesson_progress,
				certificates, enrollments, assignments, quizzes, lessons, sections, students, courses`)
			return err
		},
	)
}
