package dto

// ReferenceItem is the uniform {id, code, name} row returned by every reference listing.
type ReferenceItem struct {
	ID   int64  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}
