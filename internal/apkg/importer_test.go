package apkg

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/memodeck/internal/database"
	"github.com/example/memodeck/pkg/models"
)

const (
	testDecksJSON = `{
		"1": {"name": "Basic Deck", "desc": "starter words", "dyn": 0},
		"2": {"name": "Cram", "desc": "", "dyn": 1}
	}`
	testModelsJSON = `{
		"10": {
			"name": "Basic",
			"css": ".card { font-size: 20px; }",
			"flds": [
				{"name": "Word", "ord": 0},
				{"name": "Phonetic", "ord": 1},
				{"name": "Back", "ord": 2}
			],
			"tmpls": [
				{"name": "Card 1", "qfmt": "{{Word}} {{#Phonetic}}[{{Phonetic}}]{{/Phonetic}}", "afmt": "{{Word}}<hr>{{Back}}", "ord": 0}
			]
		}
	}`
)

func newTestRepo(t *testing.T) *database.Repository {
	t.Helper()
	db, err := database.Connect(database.Options{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewRepository(db)
}

// buildArchive assembles a real deck archive: a sqlite snapshot zipped under
// the expected entry name.
func buildArchive(t *testing.T) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), snapshotFile)
	snap, err := sqlx.Connect("sqlite3", path)
	require.NoError(t, err)

	stmts := []string{
		`CREATE TABLE col (decks TEXT, models TEXT)`,
		`CREATE TABLE notes (id INTEGER PRIMARY KEY, mid INTEGER, flds TEXT, tags TEXT)`,
		`CREATE TABLE cards (
			id INTEGER PRIMARY KEY, nid INTEGER, did INTEGER, ord INTEGER,
			type INTEGER, queue INTEGER, due INTEGER,
			ivl INTEGER, factor INTEGER, reps INTEGER, lapses INTEGER)`,
	}
	for _, stmt := range stmts {
		_, err = snap.Exec(stmt)
		require.NoError(t, err)
	}

	_, err = snap.Exec(`INSERT INTO col (decks, models) VALUES (?, ?)`,
		testDecksJSON, testModelsJSON)
	require.NoError(t, err)

	_, err = snap.Exec(`INSERT INTO notes (id, mid, flds, tags) VALUES
		(100, 10, 'cat' || char(31) || 'kæt' || char(31) || 'кот', 'animals basic'),
		(101, 10, 'dog' || char(31) || '' || char(31) || 'собака', '')`)
	require.NoError(t, err)

	_, err = snap.Exec(`INSERT INTO cards (id, nid, did, ord, type, queue, due, ivl, factor, reps, lapses) VALUES
		(1000, 100, 1, 0, 0, 0, 1, 0, 0, 0, 0),
		(1001, 101, 1, 0, 2, 2, 1699000000000, 6, 2500, 3, 1)`)
	require.NoError(t, err)
	require.NoError(t, snap.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(snapshotFile)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	// Archives usually carry a media manifest too; the importer must skip it.
	m, err := zw.Create("media")
	require.NoError(t, err)
	_, err = m.Write([]byte("{}"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func TestImporter_Import(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	importer := NewImporter(repo.DeckRepository, repo.ModelRepository, repo.NoteRepository, repo.CardRepository, zap.NewNop())
	ctx := context.Background()

	var percents []int
	err := importer.Import(ctx, buildArchive(t), func(pct int, msg string) {
		percents = append(percents, pct)
	})
	require.NoError(t, err)

	// Progress starts at 0, ends at 100 and never goes backwards.
	require.NotEmpty(t, percents)
	assert.Equal(t, 0, percents[0])
	assert.Equal(t, 100, percents[len(percents)-1])
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}

	// The dynamic deck is skipped; only the regular one lands.
	decks, err := repo.DeckRepository.All(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "Basic Deck", decks[0].Name)
	assert.Equal(t, "starter words", decks[0].Description)

	// Deck counters equal the imported card rows.
	assert.Equal(t, 2, decks[0].TotalCards)
	assert.Equal(t, 1, decks[0].LearnedCards)

	// The new card is rendered and heuristically enriched, scheduling
	// state copied untouched.
	newCard, err := repo.CardRepository.ByID(ctx, "1000")
	require.NoError(t, err)
	require.NotNil(t, newCard)
	assert.Equal(t, "cat [kæt]", newCard.Front)
	assert.Equal(t, "cat<hr>кот", newCard.Back)
	assert.Equal(t, "cat", newCard.Word)
	assert.Equal(t, "kæt", newCard.Phonetic)
	assert.Equal(t, models.QueueNew, newCard.Queue)
	assert.Equal(t, int64(1), newCard.Due)

	// The review card keeps its history.
	review, err := repo.CardRepository.ByID(ctx, "1001")
	require.NoError(t, err)
	require.NotNil(t, review)
	assert.Equal(t, "dog", strings.TrimSpace(review.Front)) // blank phonetic drops the conditional
	assert.Equal(t, models.QueueReview, review.Queue)
	assert.Equal(t, int64(1699000000000), review.Due)
	assert.Equal(t, 6, review.Interval)
	assert.Equal(t, 2500, review.Factor)
	assert.Equal(t, 3, review.Reps)
	assert.Equal(t, 1, review.Lapses)
}

func TestImporter_ImportTwiceKeepsCounts(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	importer := NewImporter(repo.DeckRepository, repo.ModelRepository, repo.NoteRepository, repo.CardRepository, zap.NewNop())
	ctx := context.Background()
	archive := buildArchive(t)

	require.NoError(t, importer.Import(ctx, archive, nil))
	require.NoError(t, importer.Import(ctx, archive, nil))

	decks, err := repo.DeckRepository.All(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, 2, decks[0].TotalCards)

	cards, err := repo.CardRepository.ByDeck(ctx, decks[0].ID)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestImporter_InvalidArchives(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		archive func(t *testing.T) []byte
	}{
		{
			name:    "not a zip container",
			archive: func(t *testing.T) []byte { return []byte("garbage") },
		},
		{
			name: "snapshot entry missing",
			archive: func(t *testing.T) []byte {
				var buf bytes.Buffer
				zw := zip.NewWriter(&buf)
				w, err := zw.Create("media")
				require.NoError(t, err)
				_, err = w.Write([]byte("{}"))
				require.NoError(t, err)
				require.NoError(t, zw.Close())
				return buf.Bytes()
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newTestRepo(t)
			importer := NewImporter(repo.DeckRepository, repo.ModelRepository, repo.NoteRepository, repo.CardRepository, zap.NewNop())
			ctx := context.Background()

			err := importer.Import(ctx, tt.archive(t), nil)
			require.ErrorIs(t, err, ErrArchiveFormat)

			// Validation failed before anything was written.
			decks, err := repo.DeckRepository.All(ctx)
			require.NoError(t, err)
			assert.Empty(t, decks)
		})
	}
}
