package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCarStatus(t *testing.T) {
	s, ok := ParseCarStatus("Maintenance ")
	assert.True(t, ok)
	assert.Equal(t, CarStatusMaintenance, s)

	_, ok = ParseCarStatus("scrapped")
	assert.False(t, ok)
}

func TestCreateCarRequest_Validate(t *testing.T) {
	valid := CreateCarRequest{
		Plate:          "310-44-702",
		BrandID:        "toyota",
		ModelID:        "toyota:corolla",
		BrandName:      "Toyota",
		ModelName:      "Corolla",
		Year:           2022,
		DailyRateCents: 18_000,
	}
	require.NoError(t, valid.Validate())
	assert.Equal(t, CarStatusAvailable, valid.Status, "status defaults to available")

	noPlate := valid
	noPlate.Plate = "  "
	assert.Error(t, noPlate.Validate())

	longPlate := valid
	longPlate.Plate = strings.Repeat("9", 17)
	assert.Error(t, longPlate.Validate())

	badYear := valid
	badYear.Year = 1900
	assert.Error(t, badYear.Validate())

	negRate := valid
	negRate.DailyRateCents = -1
	assert.Error(t, negRate.Validate())

	badStatus := valid
	badStatus.Status = CarStatus("impounded")
	assert.Error(t, badStatus.Validate())
}

func TestUpdateCarRequest_Validate(t *testing.T) {
	empty := UpdateCarRequest{}
	require.NoError(t, empty.Validate())

	blank := ""
	bad := UpdateCarRequest{Plate: &blank}
	assert.Error(t, bad.Validate())

	km := -5
	badKM := UpdateCarRequest{MileageKM: &km}
	assert.Error(t, badKM.Validate())
}

func TestBackupFile_Validate(t *testing.T) {
	f := &BackupFile{
		Version: BackupVersion,
		Tables: map[string][]map[string]any{
			"customers":    {{"id": "c1"}},
			"suppliers":    {},
			"cars":         {},
			"reservations": {},
			"payments":     {},
			"leads":        {},
		},
	}
	require.NoError(t, f.Validate(SyncedTables()))
	assert.Equal(t, 1, f.RowCount())

	old := *f
	old.Version = 0
	assert.Error(t, old.Validate(SyncedTables()))

	missing := &BackupFile{Version: BackupVersion, Tables: map[string][]map[string]any{"cars": {}}}
	assert.Error(t, missing.Validate(SyncedTables()))
}
