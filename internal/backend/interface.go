// Package backend assembles the store and event transport selected by
// configuration.
package backend

import (
	"context"

	"teamfinance/internal/events"
	"teamfinance/internal/ports"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds what the factory built. Publisher and Consumer are nil
// when events are disabled; Consumer is also nil unless requested.
type Result struct {
	Store     ports.Store
	Publisher events.Publisher
	Consumer  events.Consumer
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Store StoreType

	SQLiteDBPath string
	PostgresDSN  string

	Events EventsType

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Consume also builds a consumer, for the worker.
	Consume bool
	// RequireEvents turns an unreachable broker into an error instead of
	// a warning.
	RequireEvents bool
}

// StoreType selects the persistence backend
type StoreType string

const (
	MemoryStore   StoreType = "memory"
	SQLiteStore   StoreType = "sqlite"
	PostgresStore StoreType = "postgres"
)

func (st StoreType) String() string {
	return string(st)
}

// IsValid returns true if the store type is valid
func (st StoreType) IsValid() bool {
	switch st {
	case MemoryStore, SQLiteStore, PostgresStore:
		return true
	default:
		return false
	}
}

// EventsType selects the event transport
type EventsType string

const (
	NoEvents    EventsType = "none"
	AMQPEvents  EventsType = "amqp"
	KafkaEvents EventsType = "kafka"
)

func (et EventsType) IsValid() bool {
	switch et {
	case NoEvents, AMQPEvents, KafkaEvents:
		return true
	default:
		return false
	}
}
