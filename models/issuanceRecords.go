package models

import (
	"context"
	"time"

	"bitbucket.org/lgugso/assets_backend/config"
	"bitbucket.org/lgugso/assets_backend/utils"
)

// ParRecord is one physical unit issued under a Property Acknowledgement
// Receipt (high-value items). PropertyId is the per-unit tag; ParId is the
// slip number shared by every unit of the same line item.
type ParRecord struct {
	ID          int        `gorm:"primary_key" json:"id"`
	PropertyId  string     `gorm:"size:60;not null;unique;column:property_id" json:"property_id"`
	ParId       string     `gorm:"size:50;not null;index;column:par_id" json:"PAR_id"`
	ItemId      int64      `gorm:"index;not null" json:"item_id"`
	EndUserId   int        `gorm:"not null" json:"enduser_id"`
	Inspected   bool       `gorm:"not null;default:false" json:"inspected"`
	InspectedAt *time.Time `json:"inspected_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// IcsRecord is the Inventory Custodian Slip counterpart for low-value items.
type IcsRecord struct {
	ID          int        `gorm:"primary_key" json:"id"`
	InventoryId string     `gorm:"size:60;not null;unique;column:inventory_id" json:"inventory_id"`
	IcsId       string     `gorm:"size:50;not null;index;column:ics_id" json:"ICS_id"`
	ItemId      int64      `gorm:"index;not null" json:"item_id"`
	EndUserId   int        `gorm:"not null" json:"enduser_id"`
	Inspected   bool       `gorm:"not null;default:false" json:"inspected"`
	InspectedAt *time.Time `json:"inspected_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// ItemRecord is the classification-agnostic view of a unit tag row used by
// the item lookup endpoints.
type ItemRecord struct {
	TagId          string     `json:"tag_id"`
	SlipId         string     `json:"slip_id"`
	ItemId         int64      `json:"item_id"`
	EndUserId      int        `json:"enduser_id"`
	Classification string     `json:"classification"`
	Inspected      bool       `json:"inspected"`
	InspectedAt    *time.Time `json:"inspected_at"`
}

const ItemListCacheKey = "ItemList"

const itemUnionSQL = `
SELECT property_id  AS tag_id, par_id AS slip_id, item_id, end_user_id, 'PAR' AS classification, inspected, inspected_at
FROM par_records
UNION ALL
SELECT inventory_id AS tag_id, ics_id AS slip_id, item_id, end_user_id, 'ICS' AS classification, inspected, inspected_at
FROM ics_records
`

func FetchAllItems(ctx context.Context) ([]*ItemRecord, error) {
	var items []*ItemRecord
	exists, err := config.GetRedisObject(ItemListCacheKey, &items)
	if err == nil && exists {
		return items, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(itemUnionSQL + " ORDER BY item_id, tag_id").Scan(&items).Error; err != nil {
		return nil, err
	}

	_ = config.SetRedisObject(ItemListCacheKey, items, 0)
	return items, nil
}

func FetchItemByTag(ctx context.Context, tagId string) (*ItemRecord, error) {
	db := config.GetDB()
	var items []*ItemRecord
	sql := "SELECT * FROM (" + itemUnionSQL + ") items WHERE tag_id = ? LIMIT 1"
	if err := db.WithContext(ctx).Raw(sql, tagId).Scan(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return items[0], nil
}

// MarkItemInspected flips the inspection flag for the tagged unit, stamping
// the scan time. The tag is looked up in the PAR table first, then ICS.
func MarkItemInspected(ctx context.Context, tagId string) (*ItemRecord, error) {
	db := config.GetDB()
	now := time.Now()

	updates := map[string]any{"inspected": true, "inspected_at": now}

	result := db.WithContext(ctx).Model(&ParRecord{}).Where("property_id = ?", tagId).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		result = db.WithContext(ctx).Model(&IcsRecord{}).Where("inventory_id = ?", tagId).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, utils.ErrorRecordNotFound
		}
	}

	_ = config.RemoveRedisKey(ItemListCacheKey)
	return FetchItemByTag(ctx, tagId)
}

func FetchInspectedItems(ctx context.Context) ([]*ItemRecord, error) {
	db := config.GetDB()
	var items []*ItemRecord
	sql := "SELECT * FROM (" + itemUnionSQL + ") items WHERE inspected = 1 ORDER BY inspected_at DESC"
	if err := db.WithContext(ctx).Raw(sql).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func SearchItems(ctx context.Context, term string) ([]*ItemRecord, error) {
	db := config.GetDB()
	var items []*ItemRecord
	sql := "SELECT * FROM (" + itemUnionSQL + ") items WHERE tag_id LIKE ? OR slip_id LIKE ? ORDER BY item_id, tag_id"
	pattern := "%" + term + "%"
	if err := db.WithContext(ctx).Raw(sql, pattern, pattern).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
