package database

import (
	"context"
	"testing"
)

func TestColumnReportMatchesSchema(t *testing.T) {
	_, db := newTestStore(t)

	reports, err := New(db).ColumnReport(context.Background())
	if err != nil {
		t.Fatalf("ColumnReport: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports", len(reports))
	}
	for _, r := range reports {
		if !r.OK() || len(r.Unmapped) != 0 {
			t.Errorf("%s: missing %v, unmapped %v", r.Table, r.Missing, r.Unmapped)
		}
	}
}

func TestColumnReportFindsDrift(t *testing.T) {
	_, db := newTestStore(t)
	if err := db.Exec(`ALTER TABLE projects ADD COLUMN budget INTEGER`).Error; err != nil {
		t.Fatalf("alter: %v", err)
	}
	if err := db.Exec(`DROP TABLE site_settings`).Error; err != nil {
		t.Fatalf("drop: %v", err)
	}

	reports, err := New(db).ColumnReport(context.Background())
	if err != nil {
		t.Fatalf("ColumnReport: %v", err)
	}
	settings, projects := reports[0], reports[1]
	if settings.Exists || settings.OK() || len(settings.Missing) == 0 {
		t.Errorf("settings report = %+v", settings)
	}
	if !projects.OK() || len(projects.Unmapped) != 1 || projects.Unmapped[0] != "budget" {
		t.Errorf("projects report = %+v", projects)
	}
}
