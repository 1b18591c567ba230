package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rpupo63/portfolio-site-backend/models"
	"gorm.io/gorm"
)

// TableReport lists the columns a table and its model disagree on.
type TableReport struct {
	Table string
	// Unmapped columns exist in the table but not in the model.
	Unmapped []string
	// Missing columns are read by the model but absent from the table.
	Missing []string
	Exists  bool
}

func (r TableReport) OK() bool {
	return r.Exists && len(r.Missing) == 0
}

// ColumnReport compares the site_settings and projects tables with the
// models that read them.
func (d Database) ColumnReport(ctx context.Context) ([]TableReport, error) {
	db := d.db.WithContext(ctx)
	reports := make([]TableReport, 0, 2)
	for _, model := range []any{&models.Settings{}, &models.Project{}} {
		report, err := tableReport(db, model)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func tableReport(db *gorm.DB, model any) (TableReport, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return TableReport{}, fmt.Errorf("parse model %T: %w", model, err)
	}
	report := TableReport{Table: stmt.Schema.Table}

	migrator := db.Migrator()
	if !migrator.HasTable(model) {
		report.Missing = append(report.Missing, stmt.Schema.DBNames...)
		return report, nil
	}
	report.Exists = true

	columnTypes, err := migrator.ColumnTypes(model)
	if err != nil {
		return TableReport{}, errs.NewDatabaseError("read columns of", report.Table, err)
	}

	inTable := make(map[string]bool, len(columnTypes))
	for _, ct := range columnTypes {
		inTable[ct.Name()] = true
	}
	inModel := make(map[string]bool, len(stmt.Schema.DBNames))
	for _, name := range stmt.Schema.DBNames {
		inModel[name] = true
		if !inTable[name] {
			report.Missing = append(report.Missing, name)
		}
	}
	for name := range inTable {
		if !inModel[name] {
			report.Unmapped = append(report.Unmapped, name)
		}
	}
	sort.Strings(report.Missing)
	sort.Strings(report.Unmapped)
	return report, nil
}
