// Command catalog-import ingests a commerce-platform product export file
// into the local catalog. Exports are JSON, either a bare product array or
// the platform's {"products": [...]} envelope, optionally gzip-compressed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"github.com/verdantshop/storefront/internal/platform"
	"github.com/verdantshop/storefront/internal/repository"
)

func main() {
	var (
		databaseURL string
		exportFile  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&exportFile, "export-file", "", "path to platform product export (.json or .json.gz)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if exportFile == "" {
		slog.Error("export file is required: set --export-file")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, exportFile); err != nil {
		slog.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL, exportFile string) error {
	products, err := readExport(exportFile)
	if err != nil {
		return errors.Wrap(err, "read export")
	}
	slog.Info("parsed export", slog.Int("products", len(products)))

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	lg, err := zap.NewProduction()
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	defer func() { _ = lg.Sync() }()

	syncer := platform.NewSyncer(
		fileCatalog(products),
		repository.NewProductRepository(pool),
		lg,
	)
	count, err := syncer.Sync(ctx)
	if err != nil {
		return errors.Wrap(err, "import catalog")
	}

	slog.Info("import completed", slog.Int("imported", count))
	return nil
}

// fileCatalog serves a pre-parsed export as a sync source.
type fileCatalog []platform.Product

func (c fileCatalog) Products(_ context.Context) ([]platform.Product, error) {
	return c, nil
}

func readExport(path string) ([]platform.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	// Bare array form first, then the platform envelope.
	var products []platform.Product
	if err := json.Unmarshal(data, &products); err == nil {
		return products, nil
	}

	var envelope struct {
		Products []platform.Product `json:"products"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errors.Wrap(err, "parse export JSON")
	}
	return envelope.Products, nil
}
