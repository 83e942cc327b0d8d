package repository

import (
	"context"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/joseph-ayodele/docbatch/internal/common"
)

const reportsTable = "reports"

var (
	// ReportsColumns holds the columns for the "reports" table.
	ReportsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "generated_at", Type: field.TypeTime},
		{Name: "outcome", Type: field.TypeString, Size: 16},
		{Name: "prompt", Type: field.TypeString, Size: 2147483647},
		{Name: "template", Type: field.TypeString, Nullable: true},
		{Name: "success_count", Type: field.TypeInt, Default: 0},
		{Name: "error_count", Type: field.TypeInt, Default: 0},
		{Name: "total_selected", Type: field.TypeInt, Default: 0},
		{Name: "payload", Type: field.TypeJSON},
	}
	// ReportsTable holds the schema information for the "reports" table.
	ReportsTable = &schema.Table{
		Name:       reportsTable,
		Columns:    ReportsColumns,
		PrimaryKey: []*schema.Column{ReportsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "report_generated_at", Unique: false, Columns: []*schema.Column{ReportsColumns[1]}},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{ReportsTable}
)

// Migrate creates or updates the tables.
func (d *DB) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(d.Driver)
	if err != nil {
		return common.WrapError(err, "migrate")
	}
	return common.WrapError(m.Create(ctx, Tables...), "migrate")
}
