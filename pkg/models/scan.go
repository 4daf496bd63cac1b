package models

import (
	"gorm.io/gorm"
)

// Scan history actions.
const (
	ActionScan  = "scan"
	ActionMerge = "merge"
)

// ScanRecord is one entry in the scan history: a recognized upload or a merge
// applied to a session's dataset.
type ScanRecord struct {
	gorm.Model
	SessionID   string `gorm:"index"`
	Action      string
	FileName    string
	Engine      string
	Pages       int
	TextLength  int
	Candidates  int
	OnUnmatched string
	Updated     int
	Appended    int
	Ignored     int
}

// TextLine represents a line of text with its position from OCR
type TextLine struct {
	Text   string
	X      int
	Y      int
	Width  int
	Height int
}
