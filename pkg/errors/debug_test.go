package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpReadsPgxFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_commissions_job_award", TableName: "commissions"}
	err := Wrap(CodeDependency, fmt.Errorf("insert: %w", pgErr), "create commission")

	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", d.Code)
	}
	if d.PGCode != "23505" || d.PGConstraint != "ux_commissions_job_award" || d.PGTable != "commissions" {
		t.Fatalf("unexpected pg fields %+v", d)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}
}

func TestAsPGErrorReadsLibPQ(t *testing.T) {
	err := fmt.Errorf("exec: %w", &pq.Error{Code: "40001", Message: "could not serialize access"})
	pg, ok := AsPGError(err)
	if !ok {
		t.Fatal("expected pq error to be recognised")
	}
	if pg.Code != "40001" {
		t.Fatalf("unexpected code %q", pg.Code)
	}
}

func TestAsPGErrorIgnoresPlainErrors(t *testing.T) {
	if _, ok := AsPGError(fmt.Errorf("plain")); ok {
		t.Fatal("plain errors must not be treated as postgres errors")
	}
}
