package gorm

// KVEntry is one stored value.
type KVEntry struct {
	Key            string `gorm:"primaryKey;type:text"`
	Value          []byte `gorm:"type:bytea;not null"`
	UpdatedAtEpoch int64  `gorm:"not null;index:idx_kv_updated,sort:desc"`
}

func (KVEntry) TableName() string { return "kv_entries" }
