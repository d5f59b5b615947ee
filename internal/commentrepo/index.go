// Package commentrepo implements the indexed CSV comment corpus loader and
// its multi-level query cache from spec §4.4.
package commentrepo

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

// indexSchemaVersion guards the sidecar JSON format. Replaces the upstream
// pickle-based sidecar with a versioned JSON schema per Design Notes.
const indexSchemaVersion = 1

// fileIndex is the in-memory (and on-disk sidecar) index built over one
// corpus CSV file.
type fileIndex struct {
	SchemaVersion int                          `json:"schema_version"`
	Hash          uint64                       `json:"hash"`
	AllComments   []model.PastComment          `json:"all_comments"`
	ByWeather     map[string][]int             `json:"by_weather"` // weather text -> indices into AllComments
	ByCount       map[int][]int                `json:"by_count"`
	BySeason      map[string][]int             `json:"by_season"`
}

// fileHash computes a content-change detector over the file, using xxHash
// rather than MD5 per the Design Notes ("acceptable to replace with xxHash
// or BLAKE3").
func fileHash(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("commentrepo: read %s: %w", path, err)
	}
	return xxhash.Sum64(data), nil
}

func sidecarPath(csvPath string, hash uint64) string {
	dir := filepath.Dir(csvPath)
	stem := strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
	return filepath.Join(dir, fmt.Sprintf("%s_%016x.idx.json", stem, hash))
}

// loadOrBuildIndex returns the index for csvPath, rebuilding it if the
// sidecar is missing, unreadable, stale (hash mismatch), or schema-mismatched.
func loadOrBuildIndex(csvPath string, commentType model.CommentType, season string) (*fileIndex, error) {
	hash, err := fileHash(csvPath)
	if err != nil {
		return nil, err
	}

	sidecar := sidecarPath(csvPath, hash)
	if idx, err := readSidecar(sidecar); err == nil && idx.Hash == hash && idx.SchemaVersion == indexSchemaVersion {
		return idx, nil
	}

	idx, err := buildIndex(csvPath, commentType, season, hash)
	if err != nil {
		return nil, err
	}
	_ = writeSidecarAtomic(sidecar, idx) // best-effort; a write failure just means rebuild next time
	return idx, nil
}

func readSidecar(path string) (*fileIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var idx fileIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// writeSidecarAtomic writes via temp-file + rename, per spec §5's ordering
// guarantees for index sidecars.
func writeSidecarAtomic(path string, idx *fileIndex) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func buildIndex(csvPath string, commentType model.CommentType, season string, hash uint64) (*fileIndex, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("commentrepo: open %s: %w", csvPath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	headers, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("commentrepo: read header %s: %w", csvPath, err)
	}
	colIdx := make(map[string]int, len(headers))
	for i, h := range headers {
		colIdx[strings.TrimSpace(strings.TrimPrefix(h, "﻿"))] = i
	}

	textCol := "weather_comment"
	if commentType == model.CommentTypeAdvice {
		textCol = "advice"
	}

	idx := &fileIndex{
		SchemaVersion: indexSchemaVersion,
		Hash:          hash,
		ByWeather:     make(map[string][]int),
		ByCount:       make(map[int][]int),
		BySeason:      make(map[string][]int),
	}

	for {
		rec, rerr := r.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			continue // malformed row is skipped, not fatal (spec §4.4)
		}
		text := getCol(rec, colIdx, textCol)
		if text == "" {
			continue
		}
		weatherText := getCol(rec, colIdx, "weather_condition")
		tempStr := getCol(rec, colIdx, "temperature")
		temp, _ := strconv.ParseFloat(tempStr, 64)
		countStr := getCol(rec, colIdx, "count")
		if countStr == "" {
			countStr = getCol(rec, colIdx, "usage_count")
		}
		count, _ := strconv.Atoi(countStr)

		pc := model.PastComment{
			CommentText: text,
			CommentType: commentType,
			WeatherText: weatherText,
			Temperature: temp,
			Season:      season,
			UsageCount:  count,
		}
		pos := len(idx.AllComments)
		idx.AllComments = append(idx.AllComments, pc)
		if weatherText != "" {
			idx.ByWeather[weatherText] = append(idx.ByWeather[weatherText], pos)
		}
		idx.ByCount[count] = append(idx.ByCount[count], pos)
		idx.BySeason[season] = append(idx.BySeason[season], pos)
	}
	return idx, nil
}

func getCol(rec []string, colIdx map[string]int, name string) string {
	i, ok := colIdx[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
