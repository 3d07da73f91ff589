package types

import (
	"errors"
	"time"
)

// StudyStatus represents how far a card has progressed in study
type StudyStatus string

const (
	StatusNew      StudyStatus = "new"
	StatusLearning StudyStatus = "learning"
	StatusLearned  StudyStatus = "learned"
)

// FieldTag identifies which card field a query matched
type FieldTag string

const (
	FieldWord          FieldTag = "word"
	FieldTranslation   FieldTag = "translation"
	FieldMemo          FieldTag = "memo"
	FieldPronunciation FieldTag = "pronunciation"
)

// Card represents a single bilingual flashcard
type Card struct {
	// Identification
	ID       int64
	FolderID *int64 // Nullable - cards may live outside any folder

	// Content
	Word           string // The word being tested (primary field)
	Translation    string
	Pronunciations []string
	Memo           string

	// Metadata
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Folder represents a node in the folder hierarchy that owns cards
type Folder struct {
	ID        int64
	ParentID  *int64 // Nullable - root folders have no parent
	Name      string
	CreatedAt time.Time
}

// Validate checks if the card content is valid
func (c *Card) Validate() error {
	if c.Word == "" {
		return errors.New("card word cannot be empty")
	}

	if c.Translation == "" {
		return errors.New("card translation cannot be empty")
	}

	return nil
}
