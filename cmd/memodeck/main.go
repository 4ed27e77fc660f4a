package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/memodeck/internal/apkg"
	"github.com/example/memodeck/internal/config"
	"github.com/example/memodeck/internal/database"
	"github.com/example/memodeck/internal/excel"
	"github.com/example/memodeck/internal/scheduler"
	"github.com/example/memodeck/internal/spaced_repetition"
	"github.com/example/memodeck/internal/stats"
	"github.com/example/memodeck/internal/study"
)

const usage = `usage: memodeck <command> [flags]

commands:
  import -file deck.apkg              import an exported deck archive
  import-sheet -file words.xlsx ...   import a spreadsheet or CSV word list
  decks                               list decks with their counters
  study -deck <id>                    run an interactive study session
  stats                               print per-day study statistics
  sync                                reconcile stored deck counters
`

type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	repo      *database.Repository
	recorder  *stats.Recorder
	sessions  *study.Manager
	reconcile *scheduler.Scheduler
}

func setupLogger(env string) *zap.Logger {
	var logger *zap.Logger
	if env == "development" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Init()
	if err != nil {
		log.Fatal("failed to load config: " + err.Error())
	}

	logger := setupLogger(cfg.Env)
	defer logger.Sync()

	db, err := database.Connect(database.Options{
		Driver:          cfg.DB.Driver,
		DSN:             cfg.DB.DSN,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	repo := database.NewRepository(db)
	recorder := stats.NewRecorder(repo.StatsRepository, repo.DeckRepository, repo.CardRepository, logger)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		repo:     repo,
		recorder: recorder,
		sessions: study.NewManager(repo.CardRepository, repo.SessionRepository, recorder, study.Config{
			SessionSize:  cfg.Study.SessionSize,
			NewCardOrder: cfg.Study.NewCardOrder,
		}, logger),
		reconcile: scheduler.New(repo.DeckRepository, recorder, logger),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		logger.Fatal("command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "import":
		return a.importArchive(ctx, args)
	case "import-sheet":
		return a.importSheet(ctx, args)
	case "decks":
		return a.listDecks(ctx)
	case "study":
		return a.study(ctx, args)
	case "stats":
		return a.printStats(ctx)
	case "sync":
		return a.syncStats(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) importArchive(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "path to the .apkg archive")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("import: -file is required")
	}

	archive, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("import: read archive: %w", err)
	}

	importer := apkg.NewImporter(a.repo.DeckRepository, a.repo.ModelRepository,
		a.repo.NoteRepository, a.repo.CardRepository, a.logger)
	err = importer.Import(ctx, archive, func(percent int, message string) {
		fmt.Printf("[%3d%%] %s\n", percent, message)
	})
	if err != nil {
		return err
	}
	fmt.Println("import complete")
	return nil
}

func (a *app) importSheet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import-sheet", flag.ExitOnError)
	var cfg excel.Config
	fs.StringVar(&cfg.FilePath, "file", "", "path to an .xlsx or .csv word list")
	fs.StringVar(&cfg.DeckName, "deck", "", "target deck name (created if missing)")
	fs.StringVar(&cfg.SheetName, "sheet", "", "sheet name, first sheet when empty")
	fs.StringVar(&cfg.WordColumn, "word-col", "A", "column holding the headword")
	fs.StringVar(&cfg.PhoneticColumn, "phonetic-col", "B", "column holding the transcription")
	fs.StringVar(&cfg.TranslationColumn, "translation-col", "C", "column holding the translation")
	fs.IntVar(&cfg.StartRow, "start-row", 2, "first data row, 1-based")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.FilePath == "" || cfg.DeckName == "" {
		return fmt.Errorf("import-sheet: -file and -deck are required")
	}

	importer := excel.NewImporter(a.repo.DeckRepository, a.repo.ModelRepository,
		a.repo.NoteRepository, a.repo.CardRepository, a.logger)
	result, err := importer.Import(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("processed %d rows: %d created, %d skipped\n",
		result.TotalProcessed, result.Created, result.Skipped)
	for _, msg := range result.Errors {
		fmt.Println("  warning: " + msg)
	}
	return nil
}

func (a *app) listDecks(ctx context.Context) error {
	decks, err := a.repo.All(ctx)
	if err != nil {
		return err
	}
	if len(decks) == 0 {
		fmt.Println("no decks, run `memodeck import` first")
		return nil
	}
	for _, d := range decks {
		fmt.Printf("%s  %s  (%d/%d learned)\n", d.ID, d.Name, d.LearnedCards, d.TotalCards)
	}
	return nil
}

func (a *app) study(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("study", flag.ExitOnError)
	deckID := fs.String("deck", "", "deck id to study")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *deckID == "" {
		return fmt.Errorf("study: -deck is required")
	}

	// Counters drift only while answers are flowing, so the periodic
	// reconciler runs for the lifetime of the study loop.
	if err := a.reconcile.Start(a.cfg.Stats.SyncInterval); err != nil {
		return err
	}
	defer a.reconcile.Stop()

	session, err := a.sessions.StartOrResume(ctx, *deckID)
	if err != nil {
		return err
	}
	if session == nil {
		fmt.Println("nothing to study in this deck right now")
		return nil
	}

	fmt.Printf("session %s: %d cards (Ctrl+C to pause, progress is saved)\n",
		session.ID, len(session.Words))

	reader := bufio.NewReader(os.Stdin)
	for !session.Completed {
		if ctx.Err() != nil {
			fmt.Println("\nsession paused, resume with the same command")
			return nil
		}

		card, err := a.sessions.CurrentCard(ctx, session)
		if err != nil {
			return err
		}

		shown := time.Now()
		fmt.Printf("\n[%d/%d] %s\n", session.CurrentIndex+1, len(session.Words),
			apkg.StripMarkup(card.Front))
		fmt.Print("press enter to reveal... ")
		if _, err := reader.ReadString('\n'); err != nil {
			return err
		}
		fmt.Println(apkg.StripMarkup(card.Back))

		rating, err := readRating(reader)
		if err != nil {
			return err
		}

		if err := a.sessions.RecordAnswer(ctx, session, rating, time.Since(shown).Milliseconds()); err != nil {
			return err
		}
	}

	fmt.Println("\nsession complete")
	return nil
}

func readRating(reader *bufio.Reader) (spaced_repetition.Rating, error) {
	for {
		fmt.Print("rate [1=again 2=hard 3=good 4=easy]: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, err
		}
		switch strings.TrimSpace(line) {
		case "1":
			return spaced_repetition.Again, nil
		case "2":
			return spaced_repetition.Hard, nil
		case "3":
			return spaced_repetition.Good, nil
		case "4":
			return spaced_repetition.Easy, nil
		}
	}
}

func (a *app) printStats(ctx context.Context) error {
	all, err := a.recorder.AllDailyStats(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("no study history yet")
		return nil
	}
	fmt.Println("date        answered  learned  review  minutes")
	for _, s := range all {
		fmt.Printf("%-10s  %8d  %7d  %6d  %7.1f\n",
			s.Date, s.TotalCards, s.LearnedCards, s.ReviewCards,
			float64(s.TimeSpent)/60000.0)
	}
	return nil
}

func (a *app) syncStats(ctx context.Context) error {
	decks, err := a.repo.All(ctx)
	if err != nil {
		return err
	}
	for _, d := range decks {
		if err := a.recorder.SyncDeckStats(ctx, d.ID); err != nil {
			return fmt.Errorf("sync deck %s: %w", d.ID, err)
		}
	}
	fmt.Printf("reconciled %d decks\n", len(decks))
	return nil
}
