package model

type FalloutLog struct {
	Seq         uint64 `gorm:"column:seq;primaryKey;autoIncrement"`
	LogID       string `gorm:"column:log_id;type:text;not null;uniqueIndex"`
	OrderID     string `gorm:"column:order_id;type:text;not null;index:idx_fallout_logs_order_ts,priority:1"`
	EventType   string `gorm:"column:event_type;type:text;not null"`
	Description string `gorm:"column:description;type:text;not null"`
	Timestamp   string `gorm:"column:timestamp;type:text;not null;index:idx_fallout_logs_order_ts,priority:2"`
}

func (FalloutLog) TableName() string {
	return "fallout_logs"
}
