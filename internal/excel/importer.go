// Package excel imports plain word lists from spreadsheet or CSV files
// into a deck, materializing one note and one new card per row through a
// built-in basic model.
package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/memodeck/internal/apkg"
	"github.com/example/memodeck/pkg/models"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// basicModelID identifies the built-in model spreadsheet rows import
// through. Re-imports reuse it.
const basicModelID = "spreadsheet-basic"

// Config defines where the rows come from and which columns hold what.
type Config struct {
	FilePath          string // path to the .xlsx or .csv file
	DeckName          string // target deck, created when absent
	WordColumn        string // column with the headword
	PhoneticColumn    string // column with the phonetic transcription
	TranslationColumn string // column with the translation
	SheetName         string // sheet to import (.xlsx only)
	StartRow          int    // first data row, 1-based
}

// DefaultConfig returns the default import configuration.
func DefaultConfig() Config {
	return Config{
		WordColumn:        "A",
		PhoneticColumn:    "B",
		TranslationColumn: "C",
		SheetName:         "Sheet1",
		StartRow:          2, // skip the header row
	}
}

// Result holds the outcome of one import run.
type Result struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// DeckStore is the slice of the store the importer needs for decks.
type DeckStore interface {
	ByName(ctx context.Context, name string) (*models.Deck, error)
	Create(ctx context.Context, deck *models.Deck) error
	SetCounts(ctx context.Context, id string, total, learned int) error
}

// ModelStore is the slice of the store the importer needs for models.
type ModelStore interface {
	Upsert(ctx context.Context, model *models.Model) error
}

// NoteStore is the slice of the store the importer needs for notes.
type NoteStore interface {
	Upsert(ctx context.Context, note *models.Note) error
}

// CardStore is the slice of the store the importer needs for cards.
type CardStore interface {
	Upsert(ctx context.Context, card *models.Card) error
	DeckCounts(ctx context.Context, deckID string) (total, learned int, err error)
}

// Importer loads spreadsheet word lists into the store.
type Importer struct {
	decks  DeckStore
	models ModelStore
	notes  NoteStore
	cards  CardStore
	log    *zap.Logger
	now    func() time.Time
}

// NewImporter wires a spreadsheet importer over the given store slices.
func NewImporter(decks DeckStore, modelStore ModelStore, notes NoteStore, cards CardStore, log *zap.Logger) *Importer {
	return &Importer{
		decks:  decks,
		models: modelStore,
		notes:  notes,
		cards:  cards,
		log:    log,
		now:    time.Now,
	}
}

// Import reads the configured file and materializes its rows. The file
// kind is chosen by extension: .csv is parsed as CSV, everything else is
// opened as a spreadsheet.
func (im *Importer) Import(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.DeckName == "" {
		return nil, fmt.Errorf("deck name is required")
	}

	var rows [][]string
	var err error
	if strings.ToLower(filepath.Ext(cfg.FilePath)) == ".csv" {
		rows, err = readCSVRows(cfg.FilePath)
	} else {
		rows, err = readSheetRows(cfg.FilePath, cfg.SheetName)
	}
	if err != nil {
		return nil, err
	}

	deck, err := im.ensureDeck(ctx, cfg.DeckName)
	if err != nil {
		return nil, err
	}
	model, err := im.ensureBasicModel(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Errors: []string{}}
	order := 0
	for i, row := range rows {
		if i < cfg.StartRow-1 {
			continue
		}
		// A row carrying only its first cell is a section header.
		if isSectionHeader(row) {
			continue
		}
		result.TotalProcessed++

		word := cellValue(row, cfg.WordColumn)
		phonetic := cellValue(row, cfg.PhoneticColumn)
		translation := cellValue(row, cfg.TranslationColumn)
		if word == "" || translation == "" {
			result.Skipped++
			result.Errors = append(result.Errors,
				fmt.Sprintf("row %d: word and translation are required", i+1))
			continue
		}

		if err := im.importRow(ctx, deck, model, word, phonetic, translation, order); err != nil {
			return result, fmt.Errorf("row %d: %w", i+1, err)
		}
		order++
		result.Created++
	}

	total, learned, err := im.cards.DeckCounts(ctx, deck.ID)
	if err != nil {
		return result, err
	}
	if err := im.decks.SetCounts(ctx, deck.ID, total, learned); err != nil {
		return result, err
	}

	im.log.Info("spreadsheet import finished",
		zap.String("deck", deck.Name),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (im *Importer) ensureDeck(ctx context.Context, name string) (*models.Deck, error) {
	deck, err := im.decks.ByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if deck != nil {
		return deck, nil
	}
	now := im.now().UnixMilli()
	deck = &models.Deck{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := im.decks.Create(ctx, deck); err != nil {
		return nil, err
	}
	return deck, nil
}

func (im *Importer) ensureBasicModel(ctx context.Context) (*models.Model, error) {
	model := &models.Model{
		ID:   basicModelID,
		Name: "Basic (spreadsheet)",
		Fields: models.FieldDefs{
			{Name: "Front", Ord: 0},
			{Name: "Phonetic", Ord: 1},
			{Name: "Back", Ord: 2},
		},
		Templates: models.TemplateDefs{{
			Name: "Card 1",
			Qfmt: `{{Front}}{{#Phonetic}}<br><span class="phonetic">{{Phonetic}}</span>{{/Phonetic}}`,
			Afmt: `{{Front}}<hr>{{Back}}`,
			Ord:  0,
		}},
	}
	if err := im.models.Upsert(ctx, model); err != nil {
		return nil, err
	}
	return model, nil
}

func (im *Importer) importRow(ctx context.Context, deck *models.Deck, model *models.Model, word, phonetic, translation string, order int) error {
	now := im.now().UnixMilli()
	fields := models.FieldMap{
		"Front":    word,
		"Phonetic": phonetic,
		"Back":     translation,
	}

	note := &models.Note{
		ID:        uuid.NewString(),
		DeckID:    deck.ID,
		ModelID:   model.ID,
		Fields:    fields,
		Tags:      models.Tags{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := im.notes.Upsert(ctx, note); err != nil {
		return err
	}

	tmpl := model.Templates[0]
	cleanWord, cleanPhonetic := apkg.ExtractWordPhonetic(fields, model.FieldOrder())
	card := &models.Card{
		ID:        uuid.NewString(),
		NoteID:    note.ID,
		DeckID:    deck.ID,
		Front:     apkg.RenderTemplate(tmpl.Qfmt, fields),
		Back:      apkg.RenderTemplate(tmpl.Afmt, fields),
		Word:      cleanWord,
		Phonetic:  cleanPhonetic,
		Type:      models.CardTypeNew,
		Queue:     models.QueueNew,
		Due:       int64(order), // order index while the card is new
		Factor:    2500,
		CreatedAt: now,
	}
	return im.cards.Upsert(ctx, card)
}

func readSheetRows(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isSectionHeader(row []string) bool {
	if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
		return false
	}
	for _, cell := range row[1:] {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// cellValue resolves a spreadsheet column letter against a row slice.
func cellValue(row []string, column string) string {
	idx := columnToIndex(column)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func columnToIndex(column string) int {
	column = strings.ToUpper(strings.TrimSpace(column))
	if column == "" {
		return -1
	}
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
