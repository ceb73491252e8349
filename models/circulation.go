// models/circulation.go
package models

import "time"

const ItemTable = "acad_items"
const BorrowerTable = "acad_borrowers"
const LoanTable = "acad_loans"
const ProofTable = "acad_custody_proofs"

// Item kinds.
const (
	KindDevice       = "device"
	KindBookExemplar = "book_exemplar"
)

// Item statuses. Only available⇄loaned is driven by the engine;
// maintenance/lost are set externally and block checkout.
const (
	ItemAvailable   = "available"
	ItemLoaned      = "loaned"
	ItemMaintenance = "maintenance"
	ItemLost        = "lost"
)

// Stored loan statuses. "overdue" is derived at read time, never stored.
const (
	LoanActive   = "active"
	LoanReturned = "returned"
)

type Item struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	Kind       string    `gorm:"size:20;not null" json:"kind"`
	Identifier string    `gorm:"size:120;uniqueIndex;not null" json:"identifier"` // serial number or barcode
	Name       string    `gorm:"size:200" json:"name"`
	Status     string    `gorm:"size:20;not null;default:'available'" json:"status"`
	Loanable   bool      `gorm:"not null;default:true" json:"loanable"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Borrower struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Loan struct {
	ID         string     `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID     string     `gorm:"type:uuid;index;not null" json:"itemId"`
	BorrowerID string     `gorm:"type:uuid;index;not null" json:"borrowerId"`
	CheckoutAt time.Time  `gorm:"index;not null" json:"checkoutAt"`
	DueAt      *time.Time `json:"dueAt,omitempty"`

	ReturnedAt *time.Time `gorm:"index" json:"returnedAt,omitempty"`

	// Stored status cache: active | returned. Overdue is computed, see
	// circulation.ComputeStatus.
	Status string `gorm:"size:20;not null;default:'active';index" json:"status"`

	ProofRef    string `gorm:"size:64;not null" json:"proofRef"`
	Accessories string `gorm:"size:255" json:"accessories,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CustodyProof holds a captured signature image. Rows are written once at
// checkout and only ever read back by reference.
type CustodyProof struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Data      []byte    `gorm:"type:bytea;not null" json:"-"`
	MediaType string    `gorm:"size:64" json:"mediaType"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Item) TableName() string         { return ItemTable }
func (Borrower) TableName() string     { return BorrowerTable }
func (Loan) TableName() string         { return LoanTable }
func (CustodyProof) TableName() string { return ProofTable }
