package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EntityProduct = "product"

	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

const (
	defaultPriority = 3
	maxPriority     = 5
)

// Item is a catalog write held back while Postgres is unreachable.
type Item struct {
	ID        string          `json:"id"`
	ActorID   string          `json:"actor_id,omitempty"`
	Entity    string          `json:"entity"`
	Operation string          `json:"operation"`
	TargetID  string          `json:"target_id,omitempty"`
	Data      json.RawMessage `json:"data"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority <= 0 || i.Priority > maxPriority {
		i.Priority = defaultPriority
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now().UTC()
	}
}
