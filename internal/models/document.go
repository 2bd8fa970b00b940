package models

import "math"

// Document is a contract and its ordered paragraphs.
type Document struct {
	ID         int
	Title      string
	Source     string
	URL        string
	Paragraphs []Paragraph
}

// Paragraph is one paragraph of a Document. Index is its position in the
// source, counting blank paragraphs too.
type Paragraph struct {
	Index int
	Text  string
}

// Chunk is a window of paragraph text with a back-reference to its origin.
type Chunk struct {
	DocumentID  int
	ParagraphID int
	ChunkID     int
	Text        string
}

// Record is the metadata and text stored alongside each indexed vector.
// Field names match the persisted metadata file.
type Record struct {
	Source        string `json:"source"`
	ContractID    int    `json:"contract_id"`
	ParagraphID   int    `json:"paragraph_id"`
	ChunkID       int    `json:"chunk_id"`
	ContractTitle string `json:"contract_title"`
	Text          string `json:"text"`
}

// Hit is a raw index match.
type Hit struct {
	Ordinal int
	Record  Record
	Score   float32
}

// Passage is one ranked entry of a retrieval result.
type Passage struct {
	Record
	Score        float64
	DisplayScore float64
}

// Source is the provenance entry returned to API clients.
type Source struct {
	ContractID  string  `json:"contract_id"`
	ParagraphID int     `json:"paragraph_id"`
	Score       float64 `json:"score"`
}

// Answer is the outcome of one question.
type Answer struct {
	Text     string    `json:"answer"`
	Sources  []Source  `json:"sources"`
	Passages []Passage `json:"-"`
}

// RoundScore rounds a similarity score to 3 decimal digits.
func RoundScore(score float64) float64 {
	return math.Round(score*1000) / 1000
}
