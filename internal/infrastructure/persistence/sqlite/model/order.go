package model

type Order struct {
	OrderID         string  `gorm:"column:order_id;type:text;primaryKey"`
	CustomerID      string  `gorm:"column:customer_id;type:text;not null"`
	ServiceType     string  `gorm:"column:service_type;type:text;not null"`
	Status          string  `gorm:"column:status;type:text;not null;index"`
	FalloutCategory *string `gorm:"column:fallout_category;type:text"`
	ResolvedBy      *string `gorm:"column:resolved_by;type:text"`
	CreatedAt       string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt       string  `gorm:"column:updated_at;type:text;not null"`
	ResolutionTime  *string `gorm:"column:resolution_time;type:text"`
	WorkflowOwner   string  `gorm:"column:workflow_owner;type:text;not null;default:''"`
	LeaseExpiry     *string `gorm:"column:lease_expiry;type:text"`
	EscalatedAt     *string `gorm:"column:escalated_at;type:text"`
}

func (Order) TableName() string {
	return "orders"
}
