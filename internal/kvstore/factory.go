package kvstore

import (
	"fmt"
	"strings"
)

// Type selects a Store backend
type Type string

const (
	TypeBolt   Type = "bolt"
	TypeBadger Type = "badger"
)

// New opens a store of the given type.
//
// Types:
// - bolt: single file, compact, the default for household state
// - badger: directory of LSM files, better for write-heavy workloads
func New(path string, storeType Type) (Store, error) {
	switch storeType {
	case TypeBolt, "":
		if !strings.HasSuffix(path, ".bolt") {
			path = path + ".bolt"
		}
		return NewBoltStore(path)

	case TypeBadger:
		return NewBadgerStore(path)

	default:
		return nil, fmt.Errorf("unsupported state store type: %s", storeType)
	}
}

// Info describes the available backends
func Info() map[Type]string {
	return map[Type]string{
		TypeBolt:   "Compact B+ tree database in a single file. Suited to the small amount of state kept here.",
		TypeBadger: "LSM-tree database in a directory. Fast writes, larger footprint on disk.",
	}
}
