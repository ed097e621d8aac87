// Package config provides centralized configuration for the skg storage
// engine.
//
// Configuration is loaded once from environment variables with sensible
// defaults, following the teacher's env-var-with-default idiom
// (entitydb's config.Load). There is no database-backed configuration tier
// here — the engine is a library, not a long-running service, so "highest
// priority" config is whatever the embedding program passes to
// skg.Open directly; environment variables are the fallback.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable of the storage engine and query layer.
type Config struct {
	// Root is the database root directory. Environment: SKG_ROOT.
	Root string

	// OpenThreads sizes the pool used once at startup to open shard trees
	// in parallel. Environment: SKG_OPEN_THREADS. Default: 8.
	OpenThreads int

	// QueryThreads sizes the long-lived fan-out pool used by the query
	// engine. Environment: SKG_QUERY_THREADS. Default: 8.
	QueryThreads int

	// MemoryShardSizeMB is the configured per-shard memory buffer size. No
	// code reads it: shard buffers are flushed only by Database.Flush/Close.
	// Environment: SKG_MEMORY_SHARD_SIZE_MB. Default: 64.
	MemoryShardSizeMB int

	// ShardSplitFactor is how many leaves the bulk sharder groups into one
	// shard. Shards grown by AddEdge are not split when their edge count
	// grows; shard.Tree.Split runs only when called directly.
	// Environment: SKG_SHARD_SPLIT_FACTOR. Default: 4.
	ShardSplitFactor int

	// LeafTargetEdges is the nominal edge count of one on-disk leaf.
	// Environment: SKG_LEAF_TARGET_EDGES. Default: 1_000_000.
	LeafTargetEdges int

	// MaxIntervalLength caps the vid span of one leaf built by the bulk
	// sharder; shard intervals extended by AddEdge are not limited by it.
	// Environment: SKG_MAX_INTERVAL_LENGTH. Default: 50_000_000.
	MaxIntervalLength uint64

	// NlimitDefault bounds result-set size when a request doesn't specify
	// one. Environment: SKG_NLIMIT_DEFAULT. Default: 1000.
	NlimitDefault int

	// MseclimitDefault bounds traversal wall-clock time when a request
	// doesn't specify one. Environment: SKG_MSECLIMIT_DEFAULT. Default: 5000.
	MseclimitDefault int64

	// CheckFreq is how many BFS expansions elapse between cancellation /
	// deadline polls. Environment: SKG_CHECK_FREQ. Default: 20000.
	CheckFreq int

	// MaxMemK caps traversal edge-queue memory at MaxMemK * 1000 bytes.
	// Environment: SKG_MAX_MEM_K. Default: 65536 (65,536,000 bytes).
	MaxMemK int64

	// BulkShovelDir is where the bulk sharder writes its temporary shovel
	// files. Environment: SKG_BULK_SHOVEL_DIR. Default: "<Root>/.shovel".
	BulkShovelDir string

	// IDEncoder selects the vertex-id encoder backend: "longstring" or
	// "string". Environment: SKG_ID_ENCODER. Default: "string".
	IDEncoder string

	// LogLevel sets the minimum log level. Environment: SKG_LOG_LEVEL.
	// Default: "info".
	LogLevel string
}

// Load builds a Config from environment variables, falling back to defaults.
func Load(root string) *Config {
	c := &Config{
		Root:              root,
		OpenThreads:       getEnvInt("SKG_OPEN_THREADS", 8),
		QueryThreads:      getEnvInt("SKG_QUERY_THREADS", 8),
		MemoryShardSizeMB: getEnvInt("SKG_MEMORY_SHARD_SIZE_MB", 64),
		ShardSplitFactor:  getEnvInt("SKG_SHARD_SPLIT_FACTOR", 4),
		LeafTargetEdges:   getEnvInt("SKG_LEAF_TARGET_EDGES", 1_000_000),
		MaxIntervalLength: uint64(getEnvInt("SKG_MAX_INTERVAL_LENGTH", 50_000_000)),
		NlimitDefault:     getEnvInt("SKG_NLIMIT_DEFAULT", 1000),
		MseclimitDefault:  int64(getEnvInt("SKG_MSECLIMIT_DEFAULT", 5000)),
		CheckFreq:         getEnvInt("SKG_CHECK_FREQ", 20000),
		MaxMemK:           int64(getEnvInt("SKG_MAX_MEM_K", 65536)),
		IDEncoder:         getEnv("SKG_ID_ENCODER", "string"),
		LogLevel:          getEnv("SKG_LOG_LEVEL", "info"),
	}
	c.BulkShovelDir = getEnv("SKG_BULK_SHOVEL_DIR", c.Root+"/.shovel")
	return c
}

// RootFromEnv resolves the database root from SKG_ROOT, per spec §6.
func RootFromEnv() string {
	return os.Getenv("SKG_ROOT")
}

// TestTmpDir resolves TEST_TMPDIR, per spec §6, falling back to os.TempDir.
func TestTmpDir() string {
	if v := os.Getenv("TEST_TMPDIR"); v != "" {
		return v
	}
	return os.TempDir()
}

// FlushInterval is how often a background compactor should consider
// flushing idle shard buffers. Not part of the env-tunable surface; kept as
// a package constant since no example in the corpus exposes it either.
const FlushInterval = 30 * time.Second

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			return iv
		}
	}
	return defaultValue
}
