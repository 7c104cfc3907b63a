package main

import (
	"image"

	"github.com/olablt/gio-fieldmap/tiles"
)

// environment is the site summary shown for a selected location.
type environment struct {
	Name        string `json:"name"`
	Soil        string `json:"soil"`
	RainfallMM  int    `json:"avg_rainfall"`
	TempC       int    `json:"avg_temp"`
	WaterSource string `json:"water_source"`
}

var sampleEnvironments = map[string]environment{
	"default":   {Name: "default", Soil: "loamy", RainfallMM: 700, TempC: 25, WaterSource: "river"},
	"new delhi": {Name: "new delhi", Soil: "sandy", RainfallMM: 600, TempC: 30, WaterSource: "tube well"},
	"up farm":   {Name: "up farm", Soil: "clay", RainfallMM: 900, TempC: 23, WaterSource: "river"},
}

// probeEnvironment stands in for a real site lookup: clicks on the left half
// of the map read as the farm sample, the right half as the city sample.
func probeEnvironment(screen tiles.Point, rect image.Rectangle) environment {
	if rect.Empty() {
		return sampleEnvironments["default"]
	}
	if screen.X-float64(rect.Min.X) < float64(rect.Dx()/2) {
		return sampleEnvironments["up farm"]
	}
	return sampleEnvironments["new delhi"]
}
