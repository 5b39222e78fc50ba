// package repositories provides persistence layer implementations for jamlist's storage contracts.
package repositories

import (
	"database/sql"

	"github.com/desertthunder/jamlist/internal/models"
)

var _ models.KeyValueStore = (*KVRepository)(nil)

// Store bundles the repositories that share one database.
type Store struct {
	KV     *KVRepository
	Drafts *DraftRepository
}

// NewStore creates every repository on db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		KV:     NewKVRepository(db),
		Drafts: NewDraftRepository(db),
	}
}
