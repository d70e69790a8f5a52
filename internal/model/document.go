package model

import "time"

// Document is the relational record for an uploaded PDF. The extracted text
// and the original file live on disk at the stored paths; the vector index
// for the document is addressed by its collection name, derived from ID.
type Document struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OriginalFilename string    `gorm:"size:256;not null" json:"original_filename"`
	StoredFilename   string    `gorm:"size:300;not null;uniqueIndex" json:"stored_filename"`
	PDFPath          string    `gorm:"size:512;not null" json:"pdf_path"`
	TextPath         string    `gorm:"size:512" json:"text_path"`
	UploadedAt       time.Time `gorm:"autoCreateTime" json:"upload_date"`
}
