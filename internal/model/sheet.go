package model

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Cells 一行单元格；postgres 存为 text[]，sqlite 存为数组字面量文本
type Cells []string

// Value 实现 driver.Valuer
func (c Cells) Value() (driver.Value, error) {
	return pq.StringArray(c).Value()
}

// Scan 实现 sql.Scanner
func (c *Cells) Scan(src interface{}) error {
	return (*pq.StringArray)(c).Scan(src)
}

// GormDBDataType 按方言选择列类型
func (Cells) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Table 行存储中的一张“工作表”：对应 sheet_tables
// Version 在每次写入时递增，供重写前的快照比对使用
type Table struct {
	CollectionID string `gorm:"type:varchar(200);primaryKey"                   json:"collection_id"`
	Name         string `gorm:"column:table_name;type:varchar(200);primaryKey" json:"table_name"`
	Version      int64  `gorm:"not null;default:0"                             json:"version"`
	BaseModel
}

// TableName 指定表名
func (Table) TableName() string { return "sheet_tables" }

// TableRow 工作表中的一行字符串单元格：对应 sheet_rows
type TableRow struct {
	ID           uint64         `gorm:"primaryKey;autoIncrement"                                                            json:"id"`
	CollectionID string         `gorm:"type:varchar(200);not null;uniqueIndex:uq_sheet_rows_position,priority:1"            json:"collection_id"`
	Table        string         `gorm:"column:table_name;type:varchar(200);not null;uniqueIndex:uq_sheet_rows_position,priority:2" json:"table_name"`
	RowIndex     int            `gorm:"not null;uniqueIndex:uq_sheet_rows_position,priority:3"                              json:"row_index"`
	Cells        Cells          `gorm:"not null"                                                                           json:"cells"`
	CreatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"                                                  json:"created_at"`
}

// TableName 指定表名
func (TableRow) TableName() string { return "sheet_rows" }
