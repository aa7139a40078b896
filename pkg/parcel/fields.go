package parcel

import "solar-parcel-be/pkg/sqlexec"

// Field is a display column and the result column names accepted for it, in lookup order.
type Field struct {
	Name    string
	Aliases []string
}

var (
	GeometryField     = Field{Name: "geometry", Aliases: []string{"geometry", "geom"}}
	AddressField      = Field{Name: "full_address", Aliases: []string{"full_address", "address"}}
	CountyField       = Field{Name: "county_name", Aliases: []string{"county_name", "county"}}
	AcreageField      = Field{Name: "area_acres", Aliases: []string{"area_acres", "acreage", "acres"}}
	MunicipalityField = Field{Name: "municipality_name", Aliases: []string{"municipality_name", "municipality"}}
	OwnerField        = Field{Name: "owner_name", Aliases: []string{"owner_name", "owner"}}
	TotalValueField   = Field{Name: "total_value", Aliases: []string{"total_value"}}
	CapacityField     = Field{Name: "ground_mounted_capacity_kw", Aliases: []string{"ground_mounted_capacity_kw", "capacity"}}
)

// Fields lists every column a parcel row is expected to carry.
var Fields = []Field{
	GeometryField,
	AddressField,
	CountyField,
	AcreageField,
	MunicipalityField,
	OwnerField,
	TotalValueField,
	CapacityField,
}

// Missing returns the canonical names of fields the row carries under none of their aliases.
func Missing(row sqlexec.Row) []string {
	var missing []string
	for _, f := range Fields {
		if _, ok := row.Get(f.Aliases...); !ok {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
