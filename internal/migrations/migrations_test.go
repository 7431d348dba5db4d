package migrations

import (
	"strings"
	"testing"
)

func TestSchemaDeclaresInvariants(t *testing.T) {
	s := Schema()
	for _, want := range []string{
		"create table if not exists thumbnail_jobs",
		"create table if not exists thumbnail_variants",
		"unique (job_id, rank)",
		"create table if not exists integration_tokens",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("schema missing %q", want)
		}
	}
}
