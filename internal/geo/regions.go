package geo

import "strings"

type coords struct {
	lat float64
	lon float64
}

// Built-in gazetteer of mining districts and country centroids. Keys are
// lowercase; lookup normalizes the input.
var regionCoords = map[string]coords{
	"pilbara":        {-22.0, 118.0},
	"kalgoorlie":     {-30.75, 121.47},
	"mount isa":      {-20.73, 139.49},
	"olympic dam":    {-30.44, 136.89},
	"tanami":         {-19.9, 129.7},
	"atacama":        {-23.85, -69.25},
	"antofagasta":    {-23.65, -70.4},
	"escondida":      {-24.27, -69.07},
	"sudbury":        {46.49, -80.99},
	"abitibi":        {48.5, -78.5},
	"athabasca":      {57.7, -108.3},
	"witwatersrand":  {-26.27, 27.85},
	"bushveld":       {-24.8, 28.5},
	"carajas":        {-6.07, -50.16},
	"norilsk":        {69.35, 88.2},
	"kiruna":         {67.86, 20.23},
	"copperbelt":     {-12.8, 27.9},
	"nevada":         {40.83, -116.53},
}

var countryCoords = map[string]coords{
	"australia":     {-25.27, 133.78},
	"chile":         {-26.0, -69.5},
	"peru":          {-9.19, -75.02},
	"canada":        {56.13, -106.35},
	"south africa":  {-28.48, 24.68},
	"brazil":        {-10.33, -53.2},
	"usa":           {39.83, -98.58},
	"united states": {39.83, -98.58},
	"china":         {35.86, 104.2},
	"zambia":        {-13.13, 27.85},
	"drc":           {-2.88, 23.66},
	"indonesia":     {-2.55, 118.02},
	"russia":        {61.52, 105.32},
	"sweden":        {62.2, 17.64},
	"mongolia":      {46.86, 103.85},
}

// LookupRegion resolves a named mining region to its center coordinates.
func LookupRegion(region string) (lat, lon float64, ok bool) {
	c, ok := regionCoords[strings.ToLower(strings.TrimSpace(region))]
	return c.lat, c.lon, ok
}

// LookupCountry resolves a country name to its centroid.
func LookupCountry(country string) (lat, lon float64, ok bool) {
	c, ok := countryCoords[strings.ToLower(strings.TrimSpace(country))]
	return c.lat, c.lon, ok
}
