package reports

import (
	"context"
	"fmt"
	"io"

	"bitbucket.org/lgugso/assets_backend/config"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type PpeRegistryRow struct {
	ItemId       int64           `json:"item_id"`
	FormId       string          `json:"form_id"`
	EntityName   string          `json:"entity_name"`
	FundCluster  string          `json:"fund_cluster"`
	Department   string          `json:"department"`
	Description  string          `json:"description"`
	EndUser      string          `json:"end_user"`
	DateAcquired string          `json:"date_acquired"`
	Quantity     int             `json:"quantity"`
	Unit         string          `json:"unit"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	TagCount     int             `json:"tag_count"`
}

// GetPpeRegistry returns every master entry with the number of unit tags
// issued under its slip, in registry (item_id) order.
func GetPpeRegistry(ctx context.Context) ([]*PpeRegistryRow, error) {

	sql := `
SELECT
    pe.item_id,
    pe.form_id,
    pe.entity_name,
    pe.fund_cluster,
    pe.department,
    pe.description,
    pe.end_user,
    pe.date_acquired,
    pe.quantity,
    pe.unit,
    pe.unit_cost,
    pe.total_cost,
    COALESCE(par.tag_count, 0) + COALESCE(ics.tag_count, 0) AS tag_count
FROM
    ppe_entries pe
    LEFT JOIN (SELECT item_id, COUNT(*) AS tag_count FROM par_records GROUP BY item_id) par ON par.item_id = pe.item_id
    LEFT JOIN (SELECT item_id, COUNT(*) AS tag_count FROM ics_records GROUP BY item_id) ics ON ics.item_id = pe.item_id
ORDER BY
    pe.item_id;
`

	var records []*PpeRegistryRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

var registryHeaders = []string{
	"ItemId", "FormId", "Entity", "FundCluster", "Department", "Description",
	"EndUser", "DateAcquired", "Quantity", "Unit", "UnitCost", "TotalCost", "TagCount",
}

// ExportPpeRegistryExcel writes the registry as an xlsx workbook.
func ExportPpeRegistryExcel(ctx context.Context, w io.Writer) error {

	data, err := GetPpeRegistry(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	if _, err := f.NewSheet("Sheet1"); err != nil {
		return err
	}

	// Add headers
	for i, header := range registryHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue("Sheet1", cell, header)
	}

	// Add data
	for i, d := range data {
		row := i + 2
		f.SetCellValue("Sheet1", "A"+fmt.Sprint(row), d.ItemId)
		f.SetCellValue("Sheet1", "B"+fmt.Sprint(row), d.FormId)
		f.SetCellValue("Sheet1", "C"+fmt.Sprint(row), d.EntityName)
		f.SetCellValue("Sheet1", "D"+fmt.Sprint(row), d.FundCluster)
		f.SetCellValue("Sheet1", "E"+fmt.Sprint(row), d.Department)
		f.SetCellValue("Sheet1", "F"+fmt.Sprint(row), d.Description)
		f.SetCellValue("Sheet1", "G"+fmt.Sprint(row), d.EndUser)
		f.SetCellValue("Sheet1", "H"+fmt.Sprint(row), d.DateAcquired)
		f.SetCellValue("Sheet1", "I"+fmt.Sprint(row), d.Quantity)
		f.SetCellValue("Sheet1", "J"+fmt.Sprint(row), d.Unit)
		f.SetCellValue("Sheet1", "K"+fmt.Sprint(row), d.UnitCost.InexactFloat64())
		f.SetCellValue("Sheet1", "L"+fmt.Sprint(row), d.TotalCost.InexactFloat64())
		f.SetCellValue("Sheet1", "M"+fmt.Sprint(row), d.TagCount)
	}

	return f.Write(w)
}
