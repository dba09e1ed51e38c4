package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/lgugso/assets_backend/config"
	"bitbucket.org/lgugso/assets_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PpeEntry is the master record created once per submitted line item. FormId
// carries the PAR/ICS slip number generated at ingestion; ItemId is the
// entry's ordinal position in the registry and is what the per-unit tag rows
// reference.
type PpeEntry struct {
	ID           int             `gorm:"primary_key" json:"id"`
	ItemId       int64           `gorm:"index;not null" json:"item_id"`
	FormId       string          `gorm:"size:50;index" json:"form_id"`
	EntityName   string          `gorm:"size:255" json:"entityName"`
	FundCluster  string          `gorm:"size:100" json:"fundCluster"`
	Department   string          `gorm:"size:100" json:"department"`
	Description  string          `gorm:"size:500" json:"description"`
	EndUser      string          `gorm:"size:100" json:"endUser"`
	DateAcquired string          `gorm:"size:30" json:"dateAcquired"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	Unit         string          `gorm:"size:50" json:"unit"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(16,2);default:0" json:"unitCost"`
	TotalCost    decimal.Decimal `gorm:"type:decimal(16,2);default:0" json:"totalCost"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

/*
caches:
	PpeEntryList
	ItemList
*/

const PpeEntryListCacheKey = "PpeEntryList"

func removePpeEntryCaches() {
	_ = config.RemoveRedisKey(PpeEntryListCacheKey, ItemListCacheKey)
}

func FetchAllPpeEntries(ctx context.Context) ([]*PpeEntry, error) {
	var entries []*PpeEntry
	exists, err := config.GetRedisObject(PpeEntryListCacheKey, &entries)
	if err == nil && exists {
		return entries, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Order("item_id").Find(&entries).Error; err != nil {
		return nil, err
	}

	_ = config.SetRedisObject(PpeEntryListCacheKey, entries, 0)
	return entries, nil
}

func FetchPpeEntryById(ctx context.Context, id int) (*PpeEntry, error) {
	db := config.GetDB()
	var entry PpeEntry
	if err := db.WithContext(ctx).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &entry, nil
}

type UpdatePpeEntry struct {
	EntityName   string          `json:"entityName"`
	FundCluster  string          `json:"fundCluster"`
	Department   string          `json:"department"`
	Description  string          `json:"description"`
	EndUser      string          `json:"endUser"`
	DateAcquired string          `json:"dateAcquired"`
	Quantity     int             `json:"quantity"`
	Unit         string          `json:"unit"`
	UnitCost     decimal.Decimal `json:"unitCost"`
}

// UpdatePpeEntryById rewrites the editable line-item fields; total cost is
// always recomputed server-side as quantity x unit cost.
func UpdatePpeEntryById(ctx context.Context, id int, input *UpdatePpeEntry) (*PpeEntry, error) {
	db := config.GetDB()

	entry, err := FetchPpeEntryById(ctx, id)
	if err != nil {
		return nil, err
	}

	totalCost := input.UnitCost.Mul(decimal.NewFromInt(int64(input.Quantity)))

	updates := map[string]any{
		"entity_name":   input.EntityName,
		"fund_cluster":  input.FundCluster,
		"department":    input.Department,
		"description":   input.Description,
		"end_user":      input.EndUser,
		"date_acquired": input.DateAcquired,
		"quantity":      input.Quantity,
		"unit":          input.Unit,
		"unit_cost":     input.UnitCost,
		"total_cost":    totalCost,
	}

	if err := db.WithContext(ctx).Model(entry).Updates(updates).Error; err != nil {
		return nil, err
	}

	removePpeEntryCaches()
	return entry, nil
}

func DeletePpeEntryById(ctx context.Context, id int) error {
	db := config.GetDB()
	result := db.WithContext(ctx).Delete(&PpeEntry{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}

	removePpeEntryCaches()
	return nil
}
