// Package blobkey provides storage key generation strategies for asset blobs.
package blobkey

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator defines the interface for blob key generation strategies
type Generator interface {
	// GenerateKey creates an object key for storage backends
	GenerateKey(assetID uuid.UUID, fileName string) string
}

// FlatGenerator produces a flat assets/<id>/<filename> layout
type FlatGenerator struct{}

func NewFlatGenerator() *FlatGenerator {
	return &FlatGenerator{}
}

func (g *FlatGenerator) GenerateKey(assetID uuid.UUID, fileName string) string {
	if fileName != "" {
		return fmt.Sprintf("assets/%s/%s", assetID, sanitizeFileName(fileName))
	}
	return fmt.Sprintf("assets/%s", assetID)
}

// ShardedGenerator produces Git-style sharded keys so that object listings
// stay balanced on filesystem backends:
//
//	assets/ab/cdef1234..._filename
type ShardedGenerator struct {
	// ShardLength controls how many characters form the shard directory
	ShardLength int
}

func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{ShardLength: 2}
}

func (g *ShardedGenerator) GenerateKey(assetID uuid.UUID, fileName string) string {
	id := strings.ReplaceAll(assetID.String(), "-", "")

	shardLen := g.ShardLength
	if shardLen <= 0 || shardLen >= len(id) {
		shardLen = 2
	}
	shard := id[:shardLen]
	remaining := id[shardLen:]

	name := remaining
	if fileName != "" {
		name = fmt.Sprintf("%s_%s", remaining, sanitizeFileName(fileName))
	}

	return fmt.Sprintf("assets/%s/%s", shard, name)
}

// sanitizeFileName keeps keys safe for path-based backends: path separators
// and control characters are replaced, everything else passes through.
func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':':
			b.WriteRune('_')
		case r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
