// Package uploads caches user-supplied datasets between requests. Parsed
// uploads are kept in a BoltDB file so a bulk prediction can reference an
// upload made earlier without the client resending the data, and so uploads
// survive a process restart.
package uploads

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/dataset"
)

const uploadsBucket = "uploads"

// NotFoundError reports a lookup for an upload id that is not cached.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("upload %q not found", e.ID)
}

// Upload is a cached dataset: the cleaned header and rows of a file a user
// sent, plus enough metadata to list it back.
type Upload struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Format     dataset.Format `json:"format"`
	Header     []string       `json:"header"`
	Rows       [][]string     `json:"rows"`
	RowCount   int            `json:"row_count"`
	UploadedAt time.Time      `json:"uploaded_at"`
}

// Info is the listing view of an upload, without the row data.
type Info struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Format     dataset.Format `json:"format"`
	RowCount   int            `json:"row_count"`
	UploadedAt time.Time      `json:"uploaded_at"`
}

// Cache provides persistent storage for uploaded datasets using BoltDB.
type Cache struct {
	db *bbolt.DB
}

// Open creates a cache backed by a database file under dataPath.
func Open(dataPath string) (*Cache, error) {
	dbPath := filepath.Join(dataPath, "uploads.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open uploads database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(uploadsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create uploads bucket: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the database connection gracefully.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Save stores an upload under its ID, replacing any previous upload with the
// same ID.
func (c *Cache) Save(u Upload) error {
	if u.ID == "" {
		return fmt.Errorf("upload id must not be empty")
	}
	u.RowCount = len(u.Rows)

	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(uploadsBucket))

		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal upload: %w", err)
		}
		return b.Put([]byte(u.ID), data)
	})
}

// Get retrieves an upload by ID, including its rows.
func (c *Cache) Get(id string) (Upload, error) {
	var u Upload
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(uploadsBucket)).Get([]byte(id))
		if data == nil {
			return &NotFoundError{ID: id}
		}
		return json.Unmarshal(data, &u)
	})
	if err != nil {
		return Upload{}, err
	}
	return u, nil
}

// List returns metadata for every cached upload, in key order.
func (c *Cache) List() ([]Info, error) {
	var infos []Info
	err := c.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(uploadsBucket)).ForEach(func(_, v []byte) error {
			var u Upload
			if err := json.Unmarshal(v, &u); err != nil {
				return nil // skip malformed records
			}
			infos = append(infos, Info{
				ID:         u.ID,
				Name:       u.Name,
				Format:     u.Format,
				RowCount:   u.RowCount,
				UploadedAt: u.UploadedAt,
			})
			return nil
		})
	})
	return infos, err
}

// Delete removes an upload. Deleting an ID that does not exist is not an
// error.
func (c *Cache) Delete(id string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(uploadsBucket)).Delete([]byte(id))
	})
}
