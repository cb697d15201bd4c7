package pipeline

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/AntoineSierzputowski/carmen"
	"github.com/AntoineSierzputowski/carmen/catalog"
)

// Metric parameter names, also the keys of WorkingState.Comparisons.
const (
	ParamSoilMoisture = "soil_moisture"
	ParamTemperature  = "temperature"
	ParamLight        = "light"
)

// Verdict is the structured output of one metric comparison. Created fresh per
// run per metric and never mutated afterwards.
type Verdict struct {
	Parameter string  `json:"parameter"`
	Current   float64 `json:"current"`
	// Ideal is the scalar target for soil moisture or the catalog.Band for
	// light/temperature, kept loose so the serialized form matches the catalog.
	Ideal      any           `json:"ideal"`
	Difference float64       `json:"difference"`
	Status     carmen.Status `json:"status"`
	Message    string        `json:"message"`
}

// CompareSoilMoisture judges a soil moisture percentage against the species'
// scalar target. OK iff |value - ideal| <= tolerance.
func CompareSoilMoisture(cat *catalog.Catalog, species string, value float64) (Verdict, error) {
	profile, err := cat.Lookup(species)
	if err != nil {
		return Verdict{}, err
	}

	ideal := profile.Ideal.SoilMoisture
	tolerance := profile.Tolerances.SoilMoisture
	difference := value - ideal

	status := carmen.StatusOK
	if math.Abs(difference) > tolerance {
		status = carmen.StatusAlert
	}

	var message string
	switch {
	case math.Abs(difference) <= tolerance:
		message = fmt.Sprintf("Soil moisture optimal (%g%%, ideal: %g%%)", value, ideal)
	case difference > 0:
		message = fmt.Sprintf("Soil moisture too high by %+.1f%% relative to ideal (%g%%)", difference, ideal)
	default:
		message = fmt.Sprintf("Soil moisture too low by %.1f%% relative to ideal (%g%%)", math.Abs(difference), ideal)
	}

	slog.Debug("PIPELINE: Soil moisture comparison", "species", species, "status", status, "difference", difference)

	return Verdict{
		Parameter:  ParamSoilMoisture,
		Current:    value,
		Ideal:      ideal,
		Difference: difference,
		Status:     status,
		Message:    message,
	}, nil
}

// CompareTemperature judges a temperature in Celsius against the species'
// band. OK if inside [min, max], or within tolerance of the ideal point even
// outside the band. The difference is always relative to the ideal point.
func CompareTemperature(cat *catalog.Catalog, species string, value float64) (Verdict, error) {
	profile, err := cat.Lookup(species)
	if err != nil {
		return Verdict{}, err
	}
	band := profile.Ideal.Temperature
	tolerance := profile.Tolerances.Temperature
	difference := value - band.Ideal

	status := carmen.StatusAlert
	if band.Min <= value && value <= band.Max {
		status = carmen.StatusOK
	} else if math.Abs(difference) <= tolerance {
		status = carmen.StatusOK
	}

	var message string
	if status == carmen.StatusOK {
		if math.Abs(difference) <= tolerance {
			message = fmt.Sprintf("Temperature optimal (%g°C, ideal: %g°C)", value, band.Ideal)
		} else {
			message = fmt.Sprintf("Temperature acceptable (%g°C, range: %g-%g°C)", value, band.Min, band.Max)
		}
	} else {
		switch {
		case value < band.Min:
			message = fmt.Sprintf("Temperature too low (%g°C, minimum: %g°C, ideal: %g°C)", value, band.Min, band.Ideal)
		case value > band.Max:
			message = fmt.Sprintf("Temperature too high (%g°C, maximum: %g°C, ideal: %g°C)", value, band.Max, band.Ideal)
		default:
			message = fmt.Sprintf("Temperature out of tolerance (%g°C, ideal: %g°C, tolerance: ±%g°C)", value, band.Ideal, tolerance)
		}
	}

	slog.Debug("PIPELINE: Temperature comparison", "species", species, "status", status, "current", value, "ideal", band.Ideal)

	return Verdict{
		Parameter:  ParamTemperature,
		Current:    value,
		Ideal:      band,
		Difference: difference,
		Status:     status,
		Message:    message,
	}, nil
}

// CompareLight judges a light intensity in lux against the species' band.
// Same acceptance rule as temperature: in-band OR within tolerance of ideal.
func CompareLight(cat *catalog.Catalog, species string, value float64) (Verdict, error) {
	profile, err := cat.Lookup(species)
	if err != nil {
		return Verdict{}, err
	}
	band := profile.Ideal.Light
	tolerance := profile.Tolerances.Light
	difference := value - band.Ideal

	status := carmen.StatusAlert
	if band.Min <= value && value <= band.Max {
		status = carmen.StatusOK
	} else if math.Abs(difference) <= tolerance {
		status = carmen.StatusOK
	}

	var message string
	if status == carmen.StatusOK {
		if math.Abs(difference) <= tolerance {
			message = fmt.Sprintf("Light optimal (%g lux, ideal: %g lux)", value, band.Ideal)
		} else {
			message = fmt.Sprintf("Light acceptable (%g lux, range: %g-%g lux)", value, band.Min, band.Max)
		}
	} else {
		switch {
		case value < band.Min:
			message = fmt.Sprintf("Light too low (%g lux, minimum: %g lux, ideal: %g lux)", value, band.Min, band.Ideal)
		case value > band.Max:
			message = fmt.Sprintf("Light too high (%g lux, maximum: %g lux, ideal: %g lux)", value, band.Max, band.Ideal)
		default:
			message = fmt.Sprintf("Light out of tolerance (%g lux, ideal: %g lux, tolerance: ±%g lux)", value, band.Ideal, tolerance)
		}
	}

	slog.Debug("PIPELINE: Light comparison", "species", species, "status", status, "current", value, "ideal", band.Ideal)

	return Verdict{
		Parameter:  ParamLight,
		Current:    value,
		Ideal:      band,
		Difference: difference,
		Status:     status,
		Message:    message,
	}, nil
}
