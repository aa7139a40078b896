// Package sqlexectest builds an in-memory parcel database for tests.
package sqlexectest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PolygonWKB is a small square near Boston as hex WKB.
const PolygonWKB = "010300000001000000050000000000000000E051C000000000002045400000000000D051C000000000002045400000000000D051C000000000004045400000000000E051C000000000004045400000000000E051C00000000000204540"

type Parcel struct {
	ParcelID     string
	Address      string
	County       string
	Municipality string
	Acres        float64
	Owner        string
	TotalValue   float64
	CapacityKW   float64
	Geometry     *string
}

// NewParcelDB opens a single-connection SQLite database with parcels.parcel_details attached
// and populated.
func NewParcelDB(t testing.TB, parcels ...Parcel) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec(`ATTACH DATABASE ':memory:' AS parcels`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE parcels.parcel_details (
		parcel_id TEXT PRIMARY KEY,
		full_address TEXT,
		county_name TEXT,
		municipality_name TEXT,
		area_acres REAL,
		owner_name TEXT,
		total_value REAL,
		ground_mounted_capacity_kw REAL,
		geometry TEXT
	)`).Error)

	for _, p := range parcels {
		require.NoError(t, db.Exec(
			`INSERT INTO parcels.parcel_details VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ParcelID, p.Address, p.County, p.Municipality, p.Acres, p.Owner, p.TotalValue, p.CapacityKW, p.Geometry,
		).Error)
	}
	return db
}

func Geometry(hex string) *string {
	return &hex
}
