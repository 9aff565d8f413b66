package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/testbed-portal/discovery-finder/pkg/types"
)

var ErrNoSnapshot = errors.New("no snapshot stored")

// Snapshot is one complete fetch of the reference API.
type Snapshot struct {
	Id        string         `json:"id"`
	FetchedAt time.Time      `json:"fetchedAt"`
	Records   []types.Record `json:"records"`
}

// Meta describes a snapshot without its records.
type Meta struct {
	Id        string    `json:"id"`
	FetchedAt time.Time `json:"fetchedAt"`
	Count     int       `json:"count"`
}

func NewSnapshot(records []types.Record) *Snapshot {
	return &Snapshot{
		Id:        uuid.New().String(),
		FetchedAt: time.Now().UTC(),
		Records:   records,
	}
}

func (s *Snapshot) Meta() Meta {
	return Meta{
		Id:        s.Id,
		FetchedAt: s.FetchedAt,
		Count:     len(s.Records),
	}
}

type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
}
