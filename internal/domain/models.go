// Package domain defines the persistence models and wire documents shared by
// the storage, federation and HTTP layers: stored actors, webfinger JRD
// documents and ActivityPub ordered collections.
package domain

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// ActorDocument is a decoded ActivityPub actor (Person, Group, Application).
// It is kept as a generic JSON object because remote and local actors carry
// many optional and vendor-specific fields that must survive a round trip.
type ActorDocument map[string]any

// Actor is a stored actor document for a local account.
//
// Fields:
//   - ID: auto-increment primary key.
//   - Handle: "nickname@domain", lower-cased; unique.
//   - Nickname: local part of the handle.
//   - ActorID: canonical actor URL (the document's "id").
//   - Object: the serialized ActorDocument.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type Actor struct {
	ID        uint           `json:"-"`
	Handle    string         `json:"handle"   gorm:"type:varchar(255);not null;uniqueIndex:ux_actor_handle"`
	Nickname  string         `json:"nickname" gorm:"type:varchar(64);not null;index"`
	ActorID   string         `json:"actor_id" gorm:"type:varchar(512);not null"`
	Object    []byte         `json:"-"        gorm:"type:blob;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"        gorm:"index"`
}

// TableName returns the database table name for Actor.
func (Actor) TableName() string { return "activitypub_actors" }

// Document decodes the stored object.
func (a *Actor) Document() (ActorDocument, error) {
	doc := ActorDocument{}
	if len(a.Object) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(a.Object, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// SetDocument serializes doc into Object and refreshes ActorID from its "id".
func (a *Actor) SetDocument(doc ActorDocument) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	a.Object = b
	if id, ok := doc["id"].(string); ok {
		a.ActorID = id
	}
	return nil
}
