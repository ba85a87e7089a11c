package testutil

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"openelex-backend/lib/telemetry"
)

type PipelineParams struct {
	Name string
	// if unspecified, it will skip setting up a result store
	DbSchema string
	// if unspecified, it will use `:memory:`
	DbPath string
}

type PipelineResult struct {
	DB *sql.DB
	// a per-test cache directory for fetched artifacts
	CacheRoot string
}

// SetupPipeline prepares the shared machinery a pipeline stage test
// needs: telemetry, an in-memory result store with the schema applied,
// and a throwaway cache directory.
func SetupPipeline(t testing.TB, params PipelineParams) (PipelineResult, func()) {
	cleanup := telemetry.SetupForTesting(fmt.Sprintf("test:%s", params.Name))

	dbpath := ":memory:"
	if params.DbPath != "" {
		dbpath = params.DbPath
	}
	sqlite, err := sql.Open("sqlite", dbpath)
	if err != nil {
		t.Fatal(err)
	}
	if params.DbSchema != "" {
		_, err = sqlite.Exec(params.DbSchema)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			t.Fatal(err)
		}
	}

	return PipelineResult{
		DB:        sqlite,
		CacheRoot: t.TempDir(),
	}, cleanup
}
