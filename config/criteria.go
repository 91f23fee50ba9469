package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/dhgwag/korail-reservation/models"
)

// CriteriaStore persists the ordered list of search criteria as JSON.
// Comments and trailing commas in a hand-edited file are accepted on read.
type CriteriaStore struct {
	Path string
}

func (s CriteriaStore) Load() ([]models.SearchCriterion, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.SearchCriterion{}, nil
		}
		return nil, err
	}
	var list []models.SearchCriterion
	if err := json.Unmarshal(jsonc.ToJSON(b), &list); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	if list == nil {
		list = []models.SearchCriterion{}
	}
	return list, nil
}

// Save replaces the whole file atomically
func (s CriteriaStore) Save(list []models.SearchCriterion) error {
	if list == nil {
		list = []models.SearchCriterion{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		return err
	}
	return writeFileAtomic(s.Path, buf.Bytes(), 0o644)
}
