package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/barros404/finance-sub003/internal/classifier"
	"github.com/barros404/finance-sub003/internal/config"
	"github.com/barros404/finance-sub003/internal/core/ports"
	"github.com/barros404/finance-sub003/internal/core/usecase"
	"github.com/barros404/finance-sub003/internal/extract"
	"github.com/barros404/finance-sub003/internal/infrastructure/budget"
	"github.com/barros404/finance-sub003/internal/infrastructure/catalog"
	"github.com/barros404/finance-sub003/internal/infrastructure/ocr/localtext"
	"github.com/barros404/finance-sub003/internal/infrastructure/ocr/remote"
	"github.com/barros404/finance-sub003/internal/infrastructure/queue/nats"
	"github.com/barros404/finance-sub003/internal/infrastructure/repository/postgres"
	"github.com/barros404/finance-sub003/internal/infrastructure/resilience"
	"github.com/barros404/finance-sub003/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue      ports.MessageQueue
	Repo       ports.DocumentRepository
	IngestUC   ports.DocumentIngestor
	ProcessUC  ports.DocumentProcessor
	ValidateUC ports.DocumentValidator
	MapUC      ports.BudgetMapper
	Reconciler *usecase.ReconcileUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	docRepo := postgres.NewDocumentRepository(db)
	mappingRepo := postgres.NewMappingRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	lexiconRepo := postgres.NewLexiconRepository(db, cfg.LexiconMaxTokens)
	for _, ensure := range []func(context.Context) error{
		docRepo.EnsureSchema,
		mappingRepo.EnsureSchema,
		catalogRepo.EnsureSchema,
		lexiconRepo.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, cfg.NATSQueueGroup, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	accountCatalog, err := loadCatalog(ctx, cfg, catalogRepo)
	if err != nil {
		return nil, fmt.Errorf("load account catalog: %w", err)
	}

	policy := classifier.DefaultPolicy()
	if cfg.ClassifierPolicyPath != "" {
		policy, err = classifier.LoadPolicy(cfg.ClassifierPolicyPath)
		if err != nil {
			return nil, fmt.Errorf("load classifier policy: %w", err)
		}
	}

	normalizer := classifier.NewNormalizer(policy.StopWords, policy.CurrencyTokens)
	lexicon := classifier.NewLexicon(cfg.LexiconMaxTokens)
	learned, err := lexiconRepo.AllTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("hydrate lexicon: %w", err)
	}
	lexicon.Load(learned)

	itemClassifier := classifier.New(accountCatalog, lexicon, normalizer, policy)
	docTyper := classifier.NewDocTyper(normalizer)
	splitter := extract.NewSplitter()

	var recognizer ports.TextRecognizer
	if cfg.OCRServiceURL != "" {
		recognizer = remote.New(cfg.OCRServiceURL, storage, remote.Options{
			Timeout:            time.Duration(cfg.OCRTimeoutSeconds) * time.Second,
			ResilienceExecutor: executor,
		})
	} else {
		recognizer = localtext.NewExtractor(storage)
	}

	budgets := budget.NewClient(cfg.BudgetServiceURL, 15*time.Second)

	reconciler := usecase.NewReconcileUseCase(docRepo, mappingRepo, lexiconRepo, lexicon, normalizer)
	ingestUC := usecase.NewIngestDocumentUseCase(docRepo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(docRepo, recognizer, splitter, itemClassifier, docTyper, cfg.PipelineMaxRetries, cfg.ClassifyWorkers)
	validateUC := usecase.NewValidateDocumentUseCase(docRepo, accountCatalog, queue, reconciler, cfg.PipelineMaxRetries)
	mapUC := usecase.NewMapBudgetUseCase(budgets, mappingRepo, accountCatalog, itemClassifier, reconciler)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   docRepo,

		IngestUC:   ingestUC,
		ProcessUC:  processUC,
		ValidateUC: validateUC,
		MapUC:      mapUC,
		Reconciler: reconciler,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// loadCatalog seeds the chart of accounts into Postgres and serves it from
// an in-memory snapshot. An XLSX file wins over the built-in seed; rows
// already persisted win over both on later startups without a file.
func loadCatalog(ctx context.Context, cfg config.Config, repo *postgres.CatalogRepository) (*catalog.Catalog, error) {
	if cfg.CatalogXLSXPath != "" {
		accounts, err := catalog.LoadXLSX(cfg.CatalogXLSXPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog xlsx: %w", err)
		}
		if err := repo.UpsertAccounts(ctx, accounts); err != nil {
			return nil, fmt.Errorf("persist catalog: %w", err)
		}
		slog.Info("catalog_loaded", "source", "xlsx", "accounts", len(accounts))
		return catalog.New(accounts), nil
	}

	stored, err := repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stored catalog: %w", err)
	}
	if len(stored) > 0 {
		slog.Info("catalog_loaded", "source", "postgres", "accounts", len(stored))
		return catalog.New(stored), nil
	}

	seed := catalog.DefaultAccounts()
	if err := repo.UpsertAccounts(ctx, seed); err != nil {
		return nil, fmt.Errorf("persist seed catalog: %w", err)
	}
	slog.Info("catalog_loaded", "source", "seed", "accounts", len(seed))
	return catalog.New(seed), nil
}
