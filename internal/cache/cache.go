/*
 * Copyright 2022 The Gremlins Authors
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

// Package cache persists mutant verdicts across runs, keyed by the mutant's
// stable identity and a hash of the test suite that verified it, so an
// unchanged mutant is never re-executed after the suite it was tested
// against hasn't changed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gremlor/gremlor/internal/mutantid"
	"github.com/gremlor/gremlor/internal/mutator"
)

// DefaultFileName is the cache file created at the module root.
const DefaultFileName = ".gremlor-cache"

// Record is a single cached mutant verdict. ID is the auto-incrementing
// primary key the CLI's `apply`/`show`/`result-ids` commands address a
// mutant by; the four identity fields carry a unique index instead, since
// the same mutant re-verified under a new TestsHash gets a fresh row
// rather than overwriting history for a different test suite.
type Record struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Filename   string `gorm:"uniqueIndex:mutant_identity"`
	LineText   string `gorm:"uniqueIndex:mutant_identity"`
	Index      int    `gorm:"uniqueIndex:mutant_identity"`
	TestsHash  string `gorm:"uniqueIndex:mutant_identity"`
	LineNumber int
	MutantType string
	Status     string
	UpdatedAt  time.Time
}

// TableName pins the table name so renaming the Go type doesn't migrate data.
func (Record) TableName() string {
	return "mutant_records"
}

// baselineRecord stores the one baseline-timing row per tests hash.
type baselineRecord struct {
	TestsHash string `gorm:"primaryKey"`
	ElapsedNS int64
	UpdatedAt time.Time
}

func (baselineRecord) TableName() string {
	return "baselines"
}

// Cache is a transactional, file-backed store of mutant verdicts.
type Cache struct {
	db *gorm.DB
}

// Open opens (creating if necessary) the sqlite-backed cache at path.
func Open(path string) (*Cache, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Record{}, &baselineRecord{}); err != nil {
		return nil, err
	}

	return &Cache{db: db}, nil
}

// Get returns the cached status for id under testsHash, if any.
func (c *Cache) Get(id mutantid.ID, testsHash string) (mutator.Status, bool) {
	var rec Record
	err := c.db.Where(&Record{
		Filename:  id.Filename,
		LineText:  id.LineText,
		Index:     id.Index,
		TestsHash: testsHash,
	}).First(&rec).Error
	if err != nil {
		return 0, false
	}

	return statusFromString(rec.Status), true
}

// Put upserts the verdict for id under testsHash inside a transaction.
func (c *Cache) Put(id mutantid.ID, testsHash string, status mutator.Status) error {
	return c.PutWithMeta(id, testsHash, status, "", 0)
}

// PutWithMeta upserts the verdict for id under testsHash, also storing the
// mutator type name and source line number the identity tuple alone doesn't
// carry, for display in `show`/`results`.
func (c *Cache) PutWithMeta(id mutantid.ID, testsHash string, status mutator.Status, mutantType string, line int) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		var rec Record
		err := tx.Where(&Record{
			Filename:  id.Filename,
			LineText:  id.LineText,
			Index:     id.Index,
			TestsHash: testsHash,
		}).First(&rec).Error

		rec.Filename = id.Filename
		rec.LineText = id.LineText
		rec.Index = id.Index
		rec.TestsHash = testsHash
		rec.LineNumber = line
		rec.MutantType = mutantType
		rec.Status = status.String()
		rec.UpdatedAt = time.Now()

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&rec).Error
		}
		if err != nil {
			return err
		}

		return tx.Save(&rec).Error
	})
}

// GetByID returns the cache record addressed by its primary key, the `pk`
// the `apply`/`show`/`result-ids` commands take as an argument.
func (c *Cache) GetByID(pk uint) (Record, bool) {
	var rec Record
	if err := c.db.First(&rec, pk).Error; err != nil {
		return Record{}, false
	}

	return rec, true
}

// List returns every cached record under testsHash, ordered by ID so a
// reported mutant's pk is stable across commands in the same run.
func (c *Cache) List(testsHash string) ([]Record, error) {
	var recs []Record
	err := c.db.Where("tests_hash = ?", testsHash).Order("id").Find(&recs).Error

	return recs, err
}

// Baseline returns the cached baseline elapsed time for testsHash, if any.
func (c *Cache) Baseline(testsHash string) (time.Duration, bool) {
	var rec baselineRecord
	if err := c.db.Where("tests_hash = ?", testsHash).First(&rec).Error; err != nil {
		return 0, false
	}

	return time.Duration(rec.ElapsedNS), true
}

// SetBaseline stores the baseline elapsed time for testsHash.
func (c *Cache) SetBaseline(testsHash string, elapsed time.Duration) error {
	rec := baselineRecord{
		TestsHash: testsHash,
		ElapsedNS: int64(elapsed),
		UpdatedAt: time.Now(),
	}

	return c.db.Transaction(func(tx *gorm.DB) error {
		return tx.Save(&rec).Error
	})
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// TestsHash fingerprints the test tree at modRoot: the content of every
// _test.go file found under it, in deterministic path order. Editing,
// adding, or removing a test file changes the hash, invalidating every
// cached verdict that was only ever verified against the old suite.
func TestsHash(modRoot string) string {
	var paths []string
	_ = filepath.WalkDir(modRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort walk, unreadable entries are skipped
		}
		if d.IsDir() {
			if name := d.Name(); name == ".git" || name == "vendor" {
				return fs.SkipDir
			}

			return nil
		}
		if strings.HasSuffix(path, "_test.go") {
			paths = append(paths, path)
		}

		return nil
	})
	sort.Strings(paths)

	h := sha256.New()
	for _, path := range paths {
		rel, err := filepath.Rel(modRoot, path)
		if err != nil {
			rel = path
		}
		content, err := os.ReadFile(path) //nolint:gosec // path comes from walking modRoot, not user input
		if err != nil {
			continue
		}
		h.Write([]byte(rel))
		h.Write(content)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func statusFromString(s string) mutator.Status {
	for _, st := range []mutator.Status{
		mutator.NotCovered, mutator.Runnable, mutator.Lived, mutator.Killed,
		mutator.NotViable, mutator.TimedOut, mutator.Suspicious, mutator.Skipped,
	} {
		if st.String() == s {
			return st
		}
	}

	return mutator.NotCovered
}
