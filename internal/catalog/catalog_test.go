package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Toyota", "toyota"},
		{"Alfa Romeo", "alfa-romeo"},
		{"  Mercedes-Benz ", "mercedes-benz"},
		{"Citroën", "citroen"},
		{"C4 Picasso!!", "c4-picasso"},
		{"--", "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), "Slug(%q)", tt.in)
	}
}

func TestModelID(t *testing.T) {
	assert.Equal(t, "toyota:corolla-cross", ModelID("toyota", "Corolla Cross"))
}

func testInput() []InputBrand {
	return []InputBrand{
		{
			BrandEn: "Toyota", BrandHe: "טויוטה",
			Models: []InputModel{
				{ModelEn: "Corolla", ModelHe: "קורולה"},
				{ModelEn: "Yaris", ModelHe: "יאריס"},
				// Same English name twice; IDs must stay unique.
				{ModelEn: "Corolla", ModelHe: "קורולה החדשה"},
			},
		},
		{
			BrandEn: "Kia", BrandHe: "קיה",
			Models: []InputModel{{ModelEn: "Picanto", ModelHe: "פיקנטו"}},
		},
	}
}

func TestGenerate(t *testing.T) {
	now := time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC)
	out := Generate(testInput(), now)

	require.Len(t, out.Brands.Brands, 2)
	assert.Equal(t, "toyota", out.Brands.Brands[0].BrandID)
	assert.Equal(t, "2026-08-01", out.Brands.GeneratedAt)

	require.Len(t, out.Manifest.Brands, 2)
	toyota := out.Manifest.Brands[0]
	assert.Equal(t, 3, toyota.ModelsCount)
	assert.Equal(t, "brands/toyota.models.v1.json", toyota.ModelsRef)

	mf, ok := out.ModelsByBrand["toyota"]
	require.True(t, ok)
	require.Len(t, mf.Models, 3)
	assert.Equal(t, "toyota:corolla", mf.Models[0].ModelID)
	assert.Equal(t, "toyota:yaris", mf.Models[1].ModelID)
	assert.Equal(t, "toyota:corolla-1", mf.Models[2].ModelID, "duplicate gets a numeric suffix")
}

func TestGenerate_IDsAreStableAcrossRuns(t *testing.T) {
	now := time.Date(2026, 8, 1, 7, 0, 0, 0, time.UTC)
	a := Generate(testInput(), now)
	b := Generate(testInput(), now.Add(2*time.Hour))
	assert.Equal(t, a.Manifest, b.Manifest)
}

func TestWriteDir(t *testing.T) {
	dir := t.TempDir()
	out := Generate(testInput(), time.Now())
	require.NoError(t, WriteDir(dir, out))

	raw, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, FormatVersion, m.Version)

	_, err = os.Stat(filepath.Join(dir, BrandsDirName, "kia.models.v1.json"))
	require.NoError(t, err)
}
