package db

import (
	"gorm.io/gorm"
)

// Repo implements the circulation ports (ItemRegistry, BorrowerDirectory,
// LoanLedger, CustodyStore) on Postgres. One struct, method groups split per
// concern across repo_*.go.
type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }
