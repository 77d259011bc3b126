// Package catalog builds the versioned car catalog files served to the
// public listings site: a brands-only file, a brand manifest, and one models
// file per brand, all keyed by stable slugged identifiers.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// FormatVersion is the catalog file format version, reflected in file names.
	FormatVersion = 1

	// File names under the catalog directory.
	BrandsFileName   = "brands_only.v1.json"
	ManifestFileName = "brand_manifest.v1.json"
	BrandsDirName    = "brands"
)

// InputBrand is one brand entry of the raw bilingual catalog source.
type InputBrand struct {
	BrandEn string       `json:"brandEn"`
	BrandHe string       `json:"brandHe"`
	Models  []InputModel `json:"models"`
}

// InputModel is one model entry of the raw catalog source.
type InputModel struct {
	ModelEn string `json:"modelEn"`
	ModelHe string `json:"modelHe"`
}

// Brand is a catalog brand with its stable ID.
type Brand struct {
	BrandID string `json:"brandId"`
	BrandEn string `json:"brandEn"`
	BrandHe string `json:"brandHe"`
}

// Model is a catalog model with its stable ID.
type Model struct {
	ModelID string `json:"modelId"`
	ModelEn string `json:"modelEn"`
	ModelHe string `json:"modelHe"`
}

// BrandsFile is the brands-only catalog document.
type BrandsFile struct {
	Version     int     `json:"version"`
	GeneratedAt string  `json:"generatedAt"`
	Brands      []Brand `json:"brands"`
}

// ManifestEntry describes one brand in the manifest, with a reference to its
// models file.
type ManifestEntry struct {
	Brand
	ModelsCount int    `json:"modelsCount"`
	ModelsRef   string `json:"modelsRef"`
}

// Manifest is the brand manifest document.
type Manifest struct {
	Version     int             `json:"version"`
	GeneratedAt string          `json:"generatedAt"`
	Brands      []ManifestEntry `json:"brands"`
}

// ModelsFile is the per-brand models document.
type ModelsFile struct {
	Version     int     `json:"version"`
	BrandID     string  `json:"brandId"`
	BrandEn     string  `json:"brandEn"`
	BrandHe     string  `json:"brandHe"`
	GeneratedAt string  `json:"generatedAt"`
	Models      []Model `json:"models"`
}

// Output is the full set of generated catalog documents.
type Output struct {
	Brands   BrandsFile
	Manifest Manifest
	// ModelsByBrand maps brandId to its models file.
	ModelsByBrand map[string]ModelsFile
}

// Generate derives stable IDs and builds the catalog documents from the raw
// source. now stamps the generatedAt fields (date precision only, so
// regeneration on the same day is byte-stable).
func Generate(input []InputBrand, now time.Time) Output {
	generatedAt := now.Format("2006-01-02")

	out := Output{
		Brands:        BrandsFile{Version: FormatVersion, GeneratedAt: generatedAt},
		Manifest:      Manifest{Version: FormatVersion, GeneratedAt: generatedAt},
		ModelsByBrand: make(map[string]ModelsFile, len(input)),
	}

	for _, b := range input {
		brandID := BrandID(b.BrandEn)
		brand := Brand{BrandID: brandID, BrandEn: b.BrandEn, BrandHe: b.BrandHe}

		models := make([]Model, 0, len(b.Models))
		for _, m := range b.Models {
			models = append(models, Model{
				ModelID: ModelID(brandID, m.ModelEn),
				ModelEn: m.ModelEn,
				ModelHe: m.ModelHe,
			})
		}
		models = dedupeModelIDs(models)

		out.Brands.Brands = append(out.Brands.Brands, brand)
		out.Manifest.Brands = append(out.Manifest.Brands, ManifestEntry{
			Brand:       brand,
			ModelsCount: len(models),
			ModelsRef:   BrandsDirName + "/" + brandID + ".models.v1.json",
		})
		out.ModelsByBrand[brandID] = ModelsFile{
			Version:     FormatVersion,
			BrandID:     brandID,
			BrandEn:     b.BrandEn,
			BrandHe:     b.BrandHe,
			GeneratedAt: generatedAt,
			Models:      models,
		}
	}

	return out
}

// dedupeModelIDs keeps model IDs unique within a brand by appending numeric
// suffixes to collisions, preserving input order.
func dedupeModelIDs(models []Model) []Model {
	seen := make(map[string]int, len(models))
	out := make([]Model, 0, len(models))
	for _, m := range models {
		id := m.ModelID
		if n, dup := seen[id]; dup {
			for {
				n++
				candidate := m.ModelID + "-" + strconv.Itoa(n)
				if _, taken := seen[candidate]; !taken {
					seen[m.ModelID] = n
					id = candidate
					break
				}
			}
		}
		seen[id] = 0
		m.ModelID = id
		out = append(out, m)
	}
	return out
}

// WriteDir writes the generated catalog documents under dir, creating
// dir/brands as needed.
func WriteDir(dir string, out Output) error {
	brandsDir := filepath.Join(dir, BrandsDirName)
	if err := os.MkdirAll(brandsDir, 0o755); err != nil {
		return fmt.Errorf("create catalog dirs: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, BrandsFileName), out.Brands); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, ManifestFileName), out.Manifest); err != nil {
		return err
	}
	for brandID, mf := range out.ModelsByBrand {
		path := filepath.Join(brandsDir, brandID+".models.v1.json")
		if err := writeJSON(path, mf); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
