package model

import (
	"fmt"
	"strings"
)

type DatasetType string

const (
	DatasetConsumption DatasetType = "consumption"
	DatasetPrice       DatasetType = "price"
	DatasetWeather     DatasetType = "weather"
)

// datasetAliases maps accepted spellings to their dataset type.
var datasetAliases = map[string]DatasetType{
	"consumption": DatasetConsumption,
	"power":       DatasetConsumption,
	"price":       DatasetPrice,
	"prices":      DatasetPrice,
	"weather":     DatasetWeather,
}

// DatasetInfo holds the display name and canonical columns for a dataset type.
type DatasetInfo struct {
	Name    string
	Columns []string
}

// Canonical column names.
const (
	ColCustomer        = "CUSTOMER"
	ColArea            = "AREA"
	ColIsPrivatePerson = "ISPRIVATEPERSON"
	ColDate            = "DATE"
	ColYear            = "YEAR"
	ColDateTime        = "DateTime"
	ColPrice           = "Price"
	ColWeatherDate     = "Date"
	ColWeatherTime     = "Time"
	ColQuality         = "Quality"

	ColPowerConsumption = "Power_Consumption"
	ColOneDayPower      = "One_Day_Power"
	ColOneDayPowerNaN   = "One_Day_Power_NaN"
)

// HoursPerDay is the number of hourly columns in a wide consumption row.
const HoursPerDay = 24

// HourColumn returns the canonical name of the hourly column for hour h.
func HourColumn(h int) string {
	return fmt.Sprintf("HOUR_%d", h)
}

// ConsumptionColumns returns the canonical consumption header in order.
func ConsumptionColumns() []string {
	cols := []string{ColCustomer, ColArea, ColIsPrivatePerson, ColDate, ColYear}
	for h := 0; h < HoursPerDay; h++ {
		cols = append(cols, HourColumn(h))
	}
	return cols
}

// DatasetCatalog maps every known DatasetType to its display name and canonical columns.
var DatasetCatalog = map[DatasetType]DatasetInfo{
	DatasetConsumption: {Name: "Hourly Consumption", Columns: ConsumptionColumns()},
	DatasetPrice:       {Name: "Day-Ahead Price", Columns: []string{ColDateTime, ColPrice}},
	DatasetWeather:     {Name: "Weather Parameter", Columns: []string{ColWeatherDate, ColWeatherTime, ColQuality}},
}

// ParseDatasetType resolves a configuration tag to a DatasetType.
func ParseDatasetType(s string) (DatasetType, error) {
	dt, ok := datasetAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", &SchemaError{DatasetType: DatasetType(s), Reason: "unrecognized dataset type"}
	}
	return dt, nil
}

// Valid reports whether dt is one of the recognized dataset types.
func (dt DatasetType) Valid() bool {
	_, ok := DatasetCatalog[dt]
	return ok
}

// SchemaVariant identifies which raw header convention a consumption table uses.
type SchemaVariant string

const (
	// VariantCanonical tables carry DATE and HOUR_0..HOUR_23.
	VariantCanonical SchemaVariant = "canonical"
	// VariantValuePrefixed tables carry ID_FROM_DATE and VALUE_0..VALUE_23.
	VariantValuePrefixed SchemaVariant = "value-prefixed"
)
