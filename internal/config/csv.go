package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"routeplan/internal/model"
)

// ReadLocationsCSV loads a location list from a CSV file with a
// "label,lat,lng" header row. Lat/lng may be empty when the label is a
// geocodable address.
func ReadLocationsCSV(path string) ([]model.Location, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("locations csv: %w", err)
	}
	defer f.Close()
	return parseLocationsCSV(f)
}

func parseLocationsCSV(r io.Reader) ([]model.Location, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("locations csv: header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	li, ok := col["label"]
	if !ok {
		return nil, fmt.Errorf("locations csv: missing label column")
	}
	var out []model.Location
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("locations csv: line %d: %w", line, err)
		}
		loc := model.Location{Label: rec[li]}
		if i, ok := col["lat"]; ok && i < len(rec) && rec[i] != "" {
			if loc.Lat, err = strconv.ParseFloat(rec[i], 64); err != nil {
				return nil, fmt.Errorf("locations csv: line %d: lat: %w", line, err)
			}
		}
		if i, ok := col["lng"]; ok && i < len(rec) && rec[i] != "" {
			if loc.Lng, err = strconv.ParseFloat(rec[i], 64); err != nil {
				return nil, fmt.Errorf("locations csv: line %d: lng: %w", line, err)
			}
		}
		out = append(out, loc)
	}
	return out, nil
}
