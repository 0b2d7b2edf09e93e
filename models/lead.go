package models

import "gorm.io/gorm"

// Lead is an external contact record. The scheduler only ever reads the
// minimal contact fields here; lead lifecycle and status live with the CRM
// collaborator that owns the table.
type Lead struct {
	gorm.Model
	Name  string `json:"name"`
	Phone string `gorm:"index" json:"phone"`
}
