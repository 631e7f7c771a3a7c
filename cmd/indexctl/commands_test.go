package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexsearch/indexer/internal/engine"
	"github.com/flexsearch/indexer/internal/util"
)

type fakeAdmin struct {
	calls   []string
	props   map[string]interface{}
	created bool
	err     error
}

func (f *fakeAdmin) Index() string { return "documents" }

func (f *fakeAdmin) EnsureIndex(ctx context.Context, index string) (bool, error) {
	f.calls = append(f.calls, "ensure "+index)
	return f.created, f.err
}

func (f *fakeAdmin) EnsureType(ctx context.Context, docType string, properties map[string]interface{}) error {
	f.calls = append(f.calls, "ensure-type "+docType)
	f.props = properties
	return f.err
}

func (f *fakeAdmin) ResetIndex(ctx context.Context, index string) error {
	f.calls = append(f.calls, "reset "+index)
	return f.err
}

func (f *fakeAdmin) DeleteIndex(ctx context.Context, index string) error {
	f.calls = append(f.calls, "delete "+index)
	return f.err
}

func (f *fakeAdmin) ResetAllIndices(ctx context.Context) ([]string, error) {
	f.calls = append(f.calls, "reset-all")
	return []string{"archive", "documents"}, f.err
}

func (f *fakeAdmin) ClusterHealth(ctx context.Context) (*engine.ClusterHealth, error) {
	return &engine.ClusterHealth{ClusterName: "docs", Status: "green", NumberOfNodes: 3}, f.err
}

func run(t *testing.T, admin *fakeAdmin, args ...string) (map[string]interface{}, error) {
	t.Helper()
	var gotOpts *options
	cmd := newRootCmd(func(ctx context.Context, opts *options) (Admin, error) {
		gotOpts = opts
		return admin, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	require.NotNil(t, gotOpts)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	return result, nil
}

func TestEnsure(t *testing.T) {
	admin := &fakeAdmin{created: true}
	out, err := run(t, admin, "ensure")
	require.NoError(t, err)

	assert.Equal(t, []string{"ensure documents"}, admin.calls)
	assert.Equal(t, true, out["created"])
	assert.Equal(t, "documents", out["index"])
}

func TestEnsureType_MappingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customer.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"properties":{"vat":{"type":"keyword"}}}`), 0o600))

	admin := &fakeAdmin{}
	out, err := run(t, admin, "ensure-type", "customer", "--mapping", path)
	require.NoError(t, err)

	assert.Equal(t, []string{"ensure-type customer"}, admin.calls)
	assert.Contains(t, admin.props, "vat")
	assert.Equal(t, "customer", out["type"])
}

func TestEnsureType_RequiresType(t *testing.T) {
	_, err := run(t, &fakeAdmin{}, "ensure-type")
	assert.Error(t, err)
}

func TestResetAndDelete(t *testing.T) {
	admin := &fakeAdmin{}
	_, err := run(t, admin, "reset")
	require.NoError(t, err)
	_, err = run(t, admin, "delete")
	require.NoError(t, err)

	assert.Equal(t, []string{"reset documents", "delete documents"}, admin.calls)
}

func TestResetAll_NeedsConfirmation(t *testing.T) {
	admin := &fakeAdmin{}
	_, err := run(t, admin, "reset-all")
	require.Error(t, err)
	assert.Empty(t, admin.calls)

	out, err := run(t, admin, "reset-all", "--yes")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"archive", "documents"}, out["deleted"])
}

func TestHealth(t *testing.T) {
	out, err := run(t, &fakeAdmin{}, "health")
	require.NoError(t, err)
	assert.Equal(t, "green", out["status"])
	assert.Equal(t, "docs", out["cluster_name"])
}

func TestCommandErrorIsReturned(t *testing.T) {
	_, err := run(t, &fakeAdmin{err: util.ErrEngineUnavailable}, "reset")
	assert.True(t, errors.Is(err, util.ErrEngineUnavailable))
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := loadConfig(&options{
		configPath: filepath.Join(t.TempDir(), "missing.yaml"),
		url:        "http://es:9200",
		index:      "archive",
		attempts:   3,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://es:9200", cfg.Elasticsearch.URL)
	assert.Equal(t, "archive", cfg.Elasticsearch.Index)
	assert.Equal(t, 3, cfg.Elasticsearch.HealthCheckAttempts)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("elasticsearch:\n  index: customers\n"), 0o600))

	cfg, err := loadConfig(&options{configPath: path})
	require.NoError(t, err)
	assert.Equal(t, "customers", cfg.Elasticsearch.Index)
	assert.Equal(t, []string{"french", "german"}, cfg.Elasticsearch.Stopwords)
}
