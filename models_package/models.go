package models

import (
	"time"
)

// User is a registered account. Name is unique across all users.
type User struct {
	ID           int64  `gorm:"primaryKey" db:"id" json:"id"`
	Name         string `gorm:"not null;uniqueIndex" db:"name" json:"name"`
	PasswordHash string `gorm:"not null" db:"password_hash" json:"-"`
}

func (User) TableName() string { return "users" }

// Bank is seeded out-of-band and only ever read.
type Bank struct {
	ID   int64  `gorm:"primaryKey" db:"id" json:"id"`
	Name string `gorm:"not null;uniqueIndex" db:"name" json:"name"`
}

func (Bank) TableName() string { return "banks" }

// Transaction records one transfer between two user/bank/card tuples.
// Amount is in the smallest currency unit.
type Transaction struct {
	ID             int64     `gorm:"primaryKey" db:"id" json:"id"`
	FromUser       string    `gorm:"not null" db:"from_user" json:"from_user"`
	ToUser         string    `gorm:"not null" db:"to_user" json:"to_user"`
	FromBank       int64     `gorm:"not null" db:"from_bank" json:"from_bank"`
	ToBank         int64     `gorm:"not null" db:"to_bank" json:"to_bank"`
	FromCardNumber string    `gorm:"column:from_card;not null" db:"from_card" json:"from_card_number"`
	ToCardNumber   string    `gorm:"column:to_card;not null" db:"to_card" json:"to_card_number"`
	Amount         int64     `gorm:"not null" db:"amount" json:"amount"`
	CreatedAt      time.Time `gorm:"not null" db:"created_at" json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }
