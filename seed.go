package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"storefront/model"
	"storefront/store"
	"storefront/telemetry"
)

type seedCatalog struct {
	Categories []seedCategory `yaml:"categories"`
	Products   []seedProduct  `yaml:"products"`
}

type seedCategory struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type seedProduct struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       int64  `yaml:"price"`
	Stock       int    `yaml:"stock"`
	Image       string `yaml:"image"`
	Category    string `yaml:"category"`
}

// catalogWriter is the part of store.Store the seeder needs.
type catalogWriter interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	CreateProduct(ctx context.Context, p *model.Product) error
}

var _ catalogWriter = (store.Store)(nil)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [catalog.yaml]",
		Short: "Load categories and products into an empty catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := telemetry.InitLogger(cfg.LogLevel)

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			cat, err := loadCatalog(f)
			if err != nil {
				return err
			}

			st, err := store.NewPostgresStore(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer st.Close()

			return seed(cmd.Context(), st, cat, logger)
		},
	}
}

func loadCatalog(r io.Reader) (*seedCatalog, error) {
	var cat seedCatalog
	if err := yaml.NewDecoder(r).Decode(&cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	known := make(map[string]bool, len(cat.Categories))
	for _, c := range cat.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("category without a name")
		}
		known[c.Name] = true
	}
	for _, p := range cat.Products {
		if p.Name == "" || p.Price < 1 || p.Stock < 0 {
			return nil, fmt.Errorf("product %q: name, price >= 1 and stock >= 0 are required", p.Name)
		}
		if p.Category != "" && !known[p.Category] {
			return nil, fmt.Errorf("product %q: unknown category %q", p.Name, p.Category)
		}
	}
	return &cat, nil
}

// seed only writes into an empty catalog so it can be rerun safely.
func seed(ctx context.Context, st catalogWriter, cat *seedCatalog, log *slog.Logger) error {
	cs, err := st.ListCategories(ctx)
	if err != nil {
		return err
	}
	ps, err := st.ListProducts(ctx, model.ProductFilter{})
	if err != nil {
		return err
	}
	if len(cs) > 0 || len(ps) > 0 {
		log.InfoContext(ctx, "catalog not empty, skipping seed", "categories", len(cs), "products", len(ps))
		return nil
	}

	ids := make(map[string]int64, len(cat.Categories))
	for _, sc := range cat.Categories {
		c := model.Category{Name: sc.Name, Description: sc.Description}
		if err := st.CreateCategory(ctx, &c); err != nil {
			return fmt.Errorf("seed category %q: %w", sc.Name, err)
		}
		ids[c.Name] = c.ID
	}
	for _, sp := range cat.Products {
		p := model.Product{
			Name:        sp.Name,
			Description: sp.Description,
			Price:       sp.Price,
			Stock:       sp.Stock,
			ImagePath:   sp.Image,
		}
		if id, ok := ids[sp.Category]; ok {
			p.CategoryID = &id
		}
		if err := st.CreateProduct(ctx, &p); err != nil {
			return fmt.Errorf("seed product %q: %w", sp.Name, err)
		}
	}
	log.InfoContext(ctx, "catalog seeded", "categories", len(cat.Categories), "products", len(cat.Products))
	return nil
}
