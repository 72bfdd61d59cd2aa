/*
Copyright 2025 Arksync Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package datasources reads the external collaborators the orchestrator
// consumes: the master spreadsheet of agents to update, the prior-error skip
// list, and the SNAC API.
package datasources

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/willnyarko/arksync/model"
)

// Master spreadsheet column names. The spreadsheet went through several
// generations of reshaping upstream, hence the unwieldy primary URI header.
const (
	ColPrimaryURI   = "original_agent_uri_old_spreadsheet"
	ColFallbackURI  = "aspace_agent_uri_final"
	ColAgentName    = "agent_name"
	ColSNACArk      = "snac_ark_final"
	ColUpdateStatus = "update_status"

	skipListURIColumn = "agent_uri"
)

// stripBOM removes a UTF-8 byte order mark from the first header cell.
// Spreadsheets opened and re-saved in Excel grow one.
func stripBOM(headers []string) []string {
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\uFEFF")
	}
	return headers
}

// suggestHeader returns the closest known header to name, or "" when nothing
// is plausibly close. Used to make missing-column errors actionable when a
// header was renamed upstream.
func suggestHeader(name string, headers []string) string {
	best := ""
	bestDistance := 8 // beyond this the suggestion is noise
	for _, h := range headers {
		d := levenshtein.DistanceForStrings([]rune(name), []rune(h), levenshtein.DefaultOptions)
		if d < bestDistance {
			bestDistance = d
			best = h
		}
	}
	return best
}

func columnIndex(headers []string, name string) int {
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func requireColumn(headers []string, name string) (int, error) {
	idx := columnIndex(headers, name)
	if idx >= 0 {
		return idx, nil
	}
	if suggestion := suggestHeader(name, headers); suggestion != "" {
		return -1, fmt.Errorf("spreadsheet is missing column %q (did you mean %q?)", name, suggestion)
	}
	return -1, fmt.Errorf("spreadsheet is missing column %q", name)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// LoadInputRecords reads the master spreadsheet once, in order. Rows keep
// their file order; the batch scheduler's indices refer to positions in the
// returned slice.
func LoadInputRecords(path string) ([]model.InputRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet header: %w", err)
	}
	headers = stripBOM(headers)

	nameIdx, err := requireColumn(headers, ColAgentName)
	if err != nil {
		return nil, err
	}
	arkIdx, err := requireColumn(headers, ColSNACArk)
	if err != nil {
		return nil, err
	}
	primaryIdx := columnIndex(headers, ColPrimaryURI)
	fallbackIdx := columnIndex(headers, ColFallbackURI)
	if primaryIdx < 0 && fallbackIdx < 0 {
		return nil, fmt.Errorf("spreadsheet has neither %q nor %q", ColPrimaryURI, ColFallbackURI)
	}
	statusIdx := columnIndex(headers, ColUpdateStatus)

	var records []model.InputRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read spreadsheet row %d: %w", len(records)+2, err)
		}
		records = append(records, model.InputRecord{
			AgentURI:    cell(row, primaryIdx),
			FallbackURI: cell(row, fallbackIdx),
			AgentName:   cell(row, nameIdx),
			SNACArk:     cell(row, arkIdx),
			PriorStatus: cell(row, statusIdx),
		})
	}

	logrus.Infof("Loaded %d records from %s", len(records), path)
	return records, nil
}

// LoadSkipList reads the prior-error CSV and returns the set of agent URIs
// to exclude from a run. A missing file is an empty set, not an error; the
// skip list only exists after an earlier run recorded failures.
func LoadSkipList(path string) (map[string]bool, error) {
	skip := map[string]bool{}
	if path == "" {
		return skip, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("Skip list %s not found, processing all records", path)
		return skip, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open skip list: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read skip list header: %w", err)
	}
	headers = stripBOM(headers)
	uriIdx, err := requireColumn(headers, skipListURIColumn)
	if err != nil {
		return nil, err
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read skip list row: %w", err)
		}
		if uri := cell(row, uriIdx); uri != "" {
			skip[uri] = true
		}
	}
	return skip, nil
}
