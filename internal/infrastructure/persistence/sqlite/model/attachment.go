package model

type ESim struct {
	ESimID         string  `gorm:"column:esim_id;type:text;primaryKey"`
	OrderID        string  `gorm:"column:order_id;type:text;not null;uniqueIndex"`
	ICCID          string  `gorm:"column:iccid;type:text;not null;default:''"`
	EID            string  `gorm:"column:eid;type:text;not null;default:''"`
	Status         string  `gorm:"column:status;type:text;not null"`
	ProfileStatus  string  `gorm:"column:profile_status;type:text;not null;default:''"`
	ActivationCode *string `gorm:"column:activation_code;type:text"`
	UpdatedAt      string  `gorm:"column:updated_at;type:text;not null"`
}

func (ESim) TableName() string {
	return "esims"
}

type Switch struct {
	SwitchID     string `gorm:"column:switch_id;type:text;primaryKey"`
	OrderID      string `gorm:"column:order_id;type:text;not null;uniqueIndex"`
	SwitchName   string `gorm:"column:switch_name;type:text;not null;default:''"`
	PortID       string `gorm:"column:port_id;type:text;not null;default:''"`
	ConfigStatus string `gorm:"column:config_status;type:text;not null"`
	LastUpdated  string `gorm:"column:last_updated;type:text;not null"`
}

func (Switch) TableName() string {
	return "switches"
}
