// Package seeddata holds the bundled facility catalog used by cmd/seed.
package seeddata

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
)

//go:embed facilities.json
var bundled []byte

// Load reads the catalog from path, or the bundled catalog when path is empty
func Load(path string) ([]entities.Facility, error) {
	if path == "" {
		return Decode(bytes.NewReader(bundled))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses a JSON array of facilities. Unknown fields are rejected.
func Decode(r io.Reader) ([]entities.Facility, error) {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	var facilities []entities.Facility
	if err := decoder.Decode(&facilities); err != nil {
		return nil, fmt.Errorf("failed to decode seed data: %w", err)
	}
	return facilities, nil
}
