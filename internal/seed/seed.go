// Package seed prepares a fresh database: it creates the first admin account
// and loads the master catalog. It runs once at startup and is never
// triggered by reads.
package seed

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	_ "embed"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/erazemk/pisarna/internal/accounts"
	"github.com/erazemk/pisarna/internal/audit"
	"github.com/erazemk/pisarna/internal/model"
	"github.com/erazemk/pisarna/internal/store"
)

//go:embed catalog.yaml
var catalogYAML []byte

// catalogSeededKey marks that the master catalog was loaded, so deleting
// every item later does not bring it back on restart.
const catalogSeededKey = "catalog_seeded_at"

// Options controls what Run does.
type Options struct {
	AdminName  string
	AdminEmail string
	// Catalog loads the master catalog when the database has never been seeded.
	Catalog bool
}

// Result reports what Run changed.
type Result struct {
	AdminEmail    string
	AdminPassword string
	ItemsInserted int
}

// AdminCreated reports whether Run created the first admin.
func (r *Result) AdminCreated() bool {
	return r.AdminPassword != ""
}

type catalogFile struct {
	Items []catalogItem `yaml:"items"`
}

type catalogItem struct {
	Code     string `yaml:"code"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Stock    int    `yaml:"stock"`
	Unit     string `yaml:"unit"`
	Location string `yaml:"location"`
}

// Run creates the first admin if there are no users and loads the master
// catalog if asked to and it has not been loaded before.
func Run(ctx context.Context, db *sql.DB, opts Options) (*Result, error) {
	res := &Result{}

	n, err := store.CountUsers(ctx, db)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		password, err := generatePassword(16)
		if err != nil {
			return nil, fmt.Errorf("generating password: %w", err)
		}
		admin, err := accounts.New(db).Create(ctx, audit.SystemActorID, accounts.NewUser{
			Name:     opts.AdminName,
			Email:    opts.AdminEmail,
			Role:     model.RoleAdmin,
			Password: password,
		})
		if err != nil {
			return nil, fmt.Errorf("creating admin user: %w", err)
		}
		res.AdminEmail = admin.Email
		res.AdminPassword = password
	}

	if opts.Catalog {
		items, err := Catalog()
		if err != nil {
			return nil, err
		}
		if res.ItemsInserted, err = loadCatalog(ctx, db, items); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// Catalog returns the embedded master catalog after validating it.
func Catalog() ([]model.Item, error) {
	return parseCatalog(catalogYAML)
}

func parseCatalog(data []byte) ([]model.Item, error) {
	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	items := make([]model.Item, 0, len(file.Items))
	for _, ci := range file.Items {
		items = append(items, model.Item{
			Code:     strings.TrimSpace(ci.Code),
			Name:     strings.TrimSpace(ci.Name),
			Category: strings.TrimSpace(ci.Category),
			Stock:    ci.Stock,
			Unit:     strings.TrimSpace(ci.Unit),
			Location: strings.TrimSpace(ci.Location),
		})
	}
	if err := validateCatalog(items); err != nil {
		return nil, err
	}
	return items, nil
}

// validateCatalog reports every problem in items at once.
func validateCatalog(items []model.Item) error {
	var errs error
	seen := make(map[string]int, len(items))
	for i, item := range items {
		row := i + 1
		if item.Code == "" {
			errs = multierr.Append(errs, fmt.Errorf("row %d: missing code", row))
		} else if prev, ok := seen[item.Code]; ok {
			errs = multierr.Append(errs, fmt.Errorf("row %d: code %s already used on row %d", row, item.Code, prev))
		} else {
			seen[item.Code] = row
		}
		if item.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("row %d: missing name", row))
		}
		if item.Stock < 0 {
			errs = multierr.Append(errs, fmt.Errorf("row %d: negative stock %d", row, item.Stock))
		}
	}
	return errs
}

func loadCatalog(ctx context.Context, db *sql.DB, items []model.Item) (int, error) {
	var inserted int
	err := store.WithTx(ctx, db, func(tx *sql.Tx) error {
		_, seeded, err := store.GetSetting(ctx, tx, catalogSeededKey)
		if err != nil {
			return err
		}
		if seeded {
			return nil
		}
		n, err := store.CountItems(ctx, tx)
		if err != nil {
			return err
		}
		if n > 0 {
			return store.PutSetting(ctx, tx, catalogSeededKey, time.Now().UTC().Format(time.RFC3339))
		}

		for _, item := range items {
			if _, err := store.CreateItem(ctx, tx, item); err != nil {
				return fmt.Errorf("seeding %s: %w", item.Code, err)
			}
			inserted++
		}

		if err := audit.Record(ctx, tx, audit.SystemActorID, model.ActionSeed,
			fmt.Sprintf("loaded %d items from the master catalog", inserted)); err != nil {
			return err
		}
		return store.PutSetting(ctx, tx, catalogSeededKey, time.Now().UTC().Format(time.RFC3339))
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
