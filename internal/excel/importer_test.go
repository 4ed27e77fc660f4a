package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/example/memodeck/internal/database"
	"github.com/example/memodeck/pkg/models"
)

func newTestImporter(t *testing.T) (*Importer, *database.Repository) {
	t.Helper()
	db, err := database.Connect(database.Options{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := database.NewRepository(db)
	return NewImporter(repo.DeckRepository, repo.ModelRepository, repo.NoteRepository, repo.CardRepository, zap.NewNop()), repo
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImporter_ImportCSV(t *testing.T) {
	t.Parallel()

	importer, repo := newTestImporter(t)
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.DeckName = "CSV Words"
	cfg.FilePath = writeCSV(t, "word,phonetic,translation\n"+
		"cat,kæt,кот\n"+
		"Unit 1\n"+ // section header, skipped silently
		"dog,,собака\n"+
		"bird,bɜːd,\n") // missing translation

	result, err := importer.Import(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "row 5")

	deck, err := repo.DeckRepository.ByName(ctx, "CSV Words")
	require.NoError(t, err)
	require.NotNil(t, deck)
	assert.Equal(t, 2, deck.TotalCards)
	assert.Equal(t, 0, deck.LearnedCards)

	cards, err := repo.CardRepository.NewCards(ctx, deck.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	// Cards keep their row order through the due index.
	first := cards[0]
	assert.Equal(t, models.CardTypeNew, first.Type)
	assert.Equal(t, int64(0), first.Due)
	assert.Equal(t, "cat", first.Word)
	assert.Equal(t, "kæt", first.Phonetic)
	assert.Contains(t, first.Front, "cat")
	assert.Contains(t, first.Front, "kæt")
	assert.Contains(t, first.Back, "кот")

	// The blank phonetic drops the conditional block entirely.
	second := cards[1]
	assert.Equal(t, "dog", second.Word)
	assert.NotContains(t, second.Front, "phonetic")
}

func TestImporter_ImportXLSX(t *testing.T) {
	t.Parallel()

	importer, repo := newTestImporter(t)
	ctx := context.Background()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]string{"Word", "Phonetic", "Translation"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]string{"sun", "sʌn", "солнце"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]string{"moon", "muːn", "луна"}))
	path := filepath.Join(t.TempDir(), "words.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	cfg := DefaultConfig()
	cfg.DeckName = "Sheet Words"
	cfg.FilePath = path
	cfg.SheetName = "" // falls back to the first sheet

	result, err := importer.Import(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Skipped)

	deck, err := repo.DeckRepository.ByName(ctx, "Sheet Words")
	require.NoError(t, err)
	require.NotNil(t, deck)
	assert.Equal(t, 2, deck.TotalCards)
}

func TestImporter_ReimportAppendsToSameDeck(t *testing.T) {
	t.Parallel()

	importer, repo := newTestImporter(t)
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.DeckName = "Words"
	cfg.FilePath = writeCSV(t, "word,phonetic,translation\ncat,kæt,кот\n")
	_, err := importer.Import(ctx, cfg)
	require.NoError(t, err)

	cfg.FilePath = writeCSV(t, "word,phonetic,translation\ndog,,собака\n")
	_, err = importer.Import(ctx, cfg)
	require.NoError(t, err)

	decks, err := repo.DeckRepository.All(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, 2, decks[0].TotalCards)
}

func TestColumnToIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		column string
		want   int
	}{
		{"A", 0},
		{"b", 1},
		{"Z", 25},
		{"AA", 26},
		{"", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, columnToIndex(tt.column), "column %q", tt.column)
	}
}

func TestIsSectionHeader(t *testing.T) {
	t.Parallel()

	assert.True(t, isSectionHeader([]string{"Unit 1", "", " "}))
	assert.True(t, isSectionHeader([]string{"Unit 1"}))
	assert.False(t, isSectionHeader([]string{"", "x"}))
	assert.False(t, isSectionHeader([]string{"cat", "kæt", "кот"}))
	assert.False(t, isSectionHeader(nil))
}

func TestImporter_MissingFile(t *testing.T) {
	t.Parallel()

	importer, _ := newTestImporter(t)

	cfg := DefaultConfig()
	cfg.DeckName = "Words"
	cfg.FilePath = filepath.Join(t.TempDir(), "absent.csv")

	_, err := importer.Import(context.Background(), cfg)
	assert.Error(t, err)
}
