// Package apkg imports portable deck archives: a zip container holding a
// relational snapshot of decks, models, notes and cards. The importer
// materializes the snapshot into the internal store, rendering card fronts
// and backs and extracting headword/phonetic strings along the way.
package apkg

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/memodeck/pkg/models"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// snapshotFile is the relational snapshot embedded in a deck archive.
const snapshotFile = "collection.anki2"

// fieldSeparator splits the packed field blob of a note row.
const fieldSeparator = "\x1f"

// ProgressFunc receives a monotonically increasing percentage and a stage
// message at each major import step; the final call reports 100.
type ProgressFunc func(percent int, message string)

// DeckStore is the slice of the store the importer needs for decks.
type DeckStore interface {
	ByID(ctx context.Context, id string) (*models.Deck, error)
	Create(ctx context.Context, deck *models.Deck) error
	All(ctx context.Context) ([]models.Deck, error)
	SetCounts(ctx context.Context, id string, total, learned int) error
}

// ModelStore is the slice of the store the importer needs for models.
type ModelStore interface {
	Upsert(ctx context.Context, model *models.Model) error
}

// NoteStore is the slice of the store the importer needs for notes.
type NoteStore interface {
	Upsert(ctx context.Context, note *models.Note) error
	SetDeckID(ctx context.Context, noteID, deckID string, updatedAt int64) error
}

// CardStore is the slice of the store the importer needs for cards.
type CardStore interface {
	Upsert(ctx context.Context, card *models.Card) error
	DeckCounts(ctx context.Context, deckID string) (total, learned int, err error)
}

// Importer orchestrates one archive import end to end.
type Importer struct {
	decks  DeckStore
	models ModelStore
	notes  NoteStore
	cards  CardStore
	log    *zap.Logger
	now    func() time.Time
}

// NewImporter wires an importer over the given store slices.
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

// Snapshot row shapes, as serialized inside the archive.
type snapshotDeck struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
	Dyn  int    `json:"dyn"`
	Conf int64  `json:"conf"`
}

type snapshotModel struct {
	Name  string `json:"name"`
	CSS   string `json:"css"`
	Flds  []struct {
		Name string `json:"name"`
		Ord  int    `json:"ord"`
	} `json:"flds"`
	Tmpls []struct {
		Name string `json:"name"`
		Qfmt string `json:"qfmt"`
		Afmt string `json:"afmt"`
		Ord  int    `json:"ord"`
	} `json:"tmpls"`
}

type snapshotCard struct {
	id, nid, did            int64
	ord                     int
	typ, queue              int
	due                     int64
	ivl, factor, reps, laps int
}

// Import unpacks the archive, validates the snapshot and materializes it.
// A missing or unparsable snapshot fails before any store write; a card
// whose model or template cannot be resolved is imported with blank
// front/back and logged. Storage failures propagate and may leave a
// partial import behind; callers wanting all-or-nothing semantics must
// wrap the call in their own rollback.
func (im *Importer) Import(ctx context.Context, archive []byte, onProgress ProgressFunc) error {
	report := func(pct int, msg string) {
		if onProgress != nil {
			onProgress(pct, msg)
		}
	}

	report(0, "Unzipping archive...")
	snapshot, err := extractSnapshot(archive)
	if err != nil {
		return err
	}

	report(10, "Reading snapshot...")
	snap, cleanup, err := openSnapshot(snapshot)
	if err != nil {
		return err
	}
	defer cleanup()

	report(20, "Parsing decks...")
	var decksJSON, modelsJSON string
	row := snap.QueryRowContext(ctx, "SELECT decks, models FROM col")
	if err := row.Scan(&decksJSON, &modelsJSON); err != nil {
		return fmt.Errorf("%w: snapshot metadata row unreadable: %v", ErrArchiveFormat, err)
	}

	snapDecks := map[string]snapshotDeck{}
	if err := json.Unmarshal([]byte(decksJSON), &snapDecks); err != nil {
		return fmt.Errorf("%w: deck metadata unparsable: %v", ErrArchiveFormat, err)
	}
	snapModels := map[string]snapshotModel{}
	if err := json.Unmarshal([]byte(modelsJSON), &snapModels); err != nil {
		return fmt.Errorf("%w: model metadata unparsable: %v", ErrArchiveFormat, err)
	}

	report(30, "Importing models...")
	modelsByID, err := im.importModels(ctx, snapModels)
	if err != nil {
		return err
	}

	if err := im.importDecks(ctx, snapDecks); err != nil {
		return err
	}

	report(40, "Importing notes...")
	notesByID, err := im.importNotes(ctx, snap, modelsByID)
	if err != nil {
		return err
	}

	report(60, "Importing cards...")
	if err := im.importCards(ctx, snap, modelsByID, notesByID, report); err != nil {
		return err
	}

	report(95, "Updating deck counts...")
	if err := im.rebuildDeckCounts(ctx); err != nil {
		return err
	}

	report(100, "Import complete")
	return nil
}

// extractSnapshot locates and reads the snapshot file inside the zip.
func extractSnapshot(archive []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a zip container: %v", ErrArchiveFormat, err)
	}
	for _, f := range zr.File {
		if f.Name != snapshotFile {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot open %s: %v", ErrArchiveFormat, snapshotFile, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read %s: %v", ErrArchiveFormat, snapshotFile, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s not found", ErrArchiveFormat, snapshotFile)
}

// openSnapshot spills the snapshot bytes to a temp file and opens them
// read-only through the sqlite driver.
func openSnapshot(data []byte) (*sqlx.DB, func(), error) {
	tmp, err := os.CreateTemp("", "memodeck-snapshot-*.anki2")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stage snapshot: %w", err)
	}
	path := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(path)
		return nil, nil, fmt.Errorf("failed to stage snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(path)
		return nil, nil, fmt.Errorf("failed to stage snapshot: %w", err)
	}

	db, err := sqlx.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		os.Remove(path)
		return nil, nil, fmt.Errorf("%w: snapshot unreadable: %v", ErrArchiveFormat, err)
	}
	cleanup := func() {
		db.Close()
		os.Remove(path)
	}
	return db, cleanup, nil
}

func (im *Importer) importModels(ctx context.Context, snapModels map[string]snapshotModel) (map[string]*models.Model, error) {
	out := make(map[string]*models.Model, len(snapModels))
	for id, sm := range snapModels {
		model := &models.Model{
			ID:   id,
			Name: sm.Name,
			CSS:  sm.CSS,
		}
		for _, f := range sm.Flds {
			model.Fields = append(model.Fields, models.FieldDef{Name: f.Name, Ord: f.Ord})
		}
		for _, t := range sm.Tmpls {
			model.Templates = append(model.Templates, models.TemplateDef{
				Name: t.Name, Qfmt: t.Qfmt, Afmt: t.Afmt, Ord: t.Ord,
			})
		}
		if err := im.models.Upsert(ctx, model); err != nil {
			return nil, err
		}
		out[id] = model
	}
	return out, nil
}

func (im *Importer) importDecks(ctx context.Context, snapDecks map[string]snapshotDeck) error {
	now := im.now().UnixMilli()
	for id, sd := range snapDecks {
		if sd.Dyn != 0 {
			continue
		}
		existing, err := im.decks.ByID(ctx, id)
		if err != nil {
			return err
		}
		if existing != nil {
			im.log.Warn("deck already exists, skipping creation",
				zap.String("deck_id", id), zap.String("name", sd.Name))
			continue
		}
		deck := &models.Deck{
			ID:          id,
			Name:        sd.Name,
			Description: sd.Desc,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := im.decks.Create(ctx, deck); err != nil {
			return err
		}
	}
	return nil
}

func (im *Importer) importNotes(ctx context.Context, snap *sqlx.DB, modelsByID map[string]*models.Model) (map[string]*models.Note, error) {
	rows, err := snap.QueryContext(ctx, "SELECT id, mid, flds, tags FROM notes")
	if err != nil {
		return nil, fmt.Errorf("%w: notes table unreadable: %v", ErrArchiveFormat, err)
	}
	defer rows.Close()

	now := im.now().UnixMilli()
	out := map[string]*models.Note{}
	for rows.Next() {
		var (
			id, mid    int64
			flds, tags string
		)
		if err := rows.Scan(&id, &mid, &flds, &tags); err != nil {
			return nil, fmt.Errorf("%w: note row unreadable: %v", ErrArchiveFormat, err)
		}

		noteID := strconv.FormatInt(id, 10)
		modelID := strconv.FormatInt(mid, 10)

		fieldMap := models.FieldMap{}
		if model, ok := modelsByID[modelID]; ok {
			values := strings.Split(flds, fieldSeparator)
			for i, f := range model.Fields {
				if i < len(values) {
					fieldMap[f.Name] = values[i]
				}
			}
		} else {
			im.log.Warn("note references unknown model",
				zap.String("note_id", noteID), zap.String("model_id", modelID))
		}

		note := &models.Note{
			ID:        noteID,
			ModelID:   modelID,
			Fields:    fieldMap,
			Tags:      splitTags(tags),
			CreatedAt: id, // note ids are creation timestamps in the snapshot
			UpdatedAt: now,
		}
		if err := im.notes.Upsert(ctx, note); err != nil {
			return nil, err
		}
		out[noteID] = note
	}
	return out, rows.Err()
}

func (im *Importer) importCards(ctx context.Context, snap *sqlx.DB, modelsByID map[string]*models.Model, notesByID map[string]*models.Note, report ProgressFunc) error {
	rows, err := snap.QueryContext(ctx,
		"SELECT id, nid, did, ord, type, queue, due, ivl, factor, reps, lapses FROM cards")
	if err != nil {
		return fmt.Errorf("%w: cards table unreadable: %v", ErrArchiveFormat, err)
	}
	var snapCards []snapshotCard
	for rows.Next() {
		var c snapshotCard
		if err := rows.Scan(&c.id, &c.nid, &c.did, &c.ord, &c.typ, &c.queue,
			&c.due, &c.ivl, &c.factor, &c.reps, &c.laps); err != nil {
			rows.Close()
			return fmt.Errorf("%w: card row unreadable: %v", ErrArchiveFormat, err)
		}
		snapCards = append(snapCards, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: cards table unreadable: %v", ErrArchiveFormat, err)
	}

	total := len(snapCards)
	now := im.now().UnixMilli()

	for i, sc := range snapCards {
		cardID := strconv.FormatInt(sc.id, 10)
		noteID := strconv.FormatInt(sc.nid, 10)
		deckID := strconv.FormatInt(sc.did, 10)

		var front, back, word, phonetic string
		note := notesByID[noteID]
		if note == nil {
			im.log.Warn("card references unknown note",
				zap.String("card_id", cardID), zap.String("note_id", noteID))
		} else {
			if note.DeckID == "" {
				note.DeckID = deckID
				if err := im.notes.SetDeckID(ctx, noteID, deckID, now); err != nil {
					return err
				}
			}
			if model := modelsByID[note.ModelID]; model != nil {
				if tmpl := model.TemplateByOrd(sc.ord); tmpl != nil {
					front = RenderTemplate(tmpl.Qfmt, note.Fields)
					back = RenderTemplate(tmpl.Afmt, note.Fields)
				} else {
					im.log.Warn("card references unknown template ordinal",
						zap.String("card_id", cardID), zap.Int("ord", sc.ord))
				}
				word, phonetic = ExtractWordPhonetic(note.Fields, model.FieldOrder())
			} else {
				im.log.Warn("card references unknown model",
					zap.String("card_id", cardID), zap.String("model_id", note.ModelID))
			}
		}

		card := &models.Card{
			ID:       cardID,
			NoteID:   noteID,
			DeckID:   deckID,
			Ord:      sc.ord,
			Front:    front,
			Back:     back,
			Word:     word,
			Phonetic: phonetic,
			// Scheduling state is copied verbatim from the snapshot.
			Type:      models.CardType(sc.typ),
			Queue:     models.Queue(sc.queue),
			Due:       sc.due,
			Interval:  sc.ivl,
			Factor:    sc.factor,
			Reps:      sc.reps,
			Lapses:    sc.laps,
			CreatedAt: sc.id,
		}
		if err := im.cards.Upsert(ctx, card); err != nil {
			return err
		}

		if (i+1)%100 == 0 && total > 0 {
			report(60+(i+1)*30/total, fmt.Sprintf("Importing cards %d/%d...", i+1, total))
		}
	}
	return nil
}

// rebuildDeckCounts recomputes every deck's total and learned counters
// from its imported cards.
func (im *Importer) rebuildDeckCounts(ctx context.Context) error {
	decks, err := im.decks.All(ctx)
	if err != nil {
		return err
	}
	for _, deck := range decks {
		total, learned, err := im.cards.DeckCounts(ctx, deck.ID)
		if err != nil {
			return err
		}
		if err := im.decks.SetCounts(ctx, deck.ID, total, learned); err != nil {
			return err
		}
	}
	return nil
}

func splitTags(raw string) models.Tags {
	tags := models.Tags{}
	for _, t := range strings.Fields(raw) {
		tags = append(tags, t)
	}
	return tags
}
