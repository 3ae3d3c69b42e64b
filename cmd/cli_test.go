package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inovacc/recstore/internal/action"
	"github.com/inovacc/recstore/internal/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default so commands can run again.
func resetFlags(c *cobra.Command) {
	for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}

			f.Changed = false
		})
	}

	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

type cli struct {
	t      *testing.T
	config string
	dir    string
}

func newCLI(t *testing.T) *cli {
	t.Helper()

	dir := t.TempDir()
	config := filepath.Join(dir, "config.ini")
	body := "[database]\npath = " + filepath.Join(dir, "data.db") + "\n\n[log]\nlevel = debug\n"
	require.NoError(t, os.WriteFile(config, []byte(body), 0600))

	return &cli{t: t, config: config, dir: dir}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()

	resetFlags(rootCmd)

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", c.config}, args...))

	err := rootCmd.ExecuteContext(context.Background())

	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()

	out, err := c.run("", args...)
	require.NoError(c.t, err, "recstore %s", strings.Join(args, " "))

	return out
}

func (c *cli) read(args ...string) []map[string]any {
	c.t.Helper()

	out := c.mustRun(append([]string{"read", "--format", "json"}, args...)...)

	var records []map[string]any
	require.NoError(c.t, json.Unmarshal([]byte(out), &records), out)

	return records
}

func TestCLI_Scenario(t *testing.T) {
	c := newCLI(t)

	c.mustRun("collection", "create", "users", "--key-path", "id", "--index", "by_name=name")

	out := c.mustRun("write", "users", "--data", `{"id": "1", "name": "Alice"}`)
	assert.Equal(t, "write \"users\": ok\n", out)
	assert.Equal(t, []map[string]any{{"id": "1", "name": "Alice"}}, c.read("users"))

	c.mustRun("update", "users", "--data", `{"id": "1", "name": "Alice Updated"}`, "--durability", "strict")
	assert.Equal(t, []map[string]any{{"id": "1", "name": "Alice Updated"}}, c.read("users"))

	c.mustRun("delete", "users", `"1"`)
	assert.Empty(t, c.read("users"))

	_, err := c.run(`{"id": "2", "name": "Bob"}`, "write", "users")
	require.NoError(t, err)
	c.mustRun("write", "users", "--data", `{"id": "3", "name": "Charlie"}`)
	c.mustRun("write", "users", "--data", `{"id": "4", "name": "Ann"}`)

	byName := c.read("users", "--index", "by_name")
	require.Len(t, byName, 3)
	assert.Equal(t, []any{"Ann", "Bob", "Charlie"}, []any{byName[0]["name"], byName[1]["name"], byName[2]["name"]})

	c.mustRun("clear", "users")
	assert.Empty(t, c.read("users"))
}

func TestCLI_Errors(t *testing.T) {
	c := newCLI(t)

	c.mustRun("collection", "create", "users", "--key-path", "id")
	c.mustRun("write", "users", "--data", `{"id": "1"}`)

	_, err := c.run("", "write", "users", "--data", `{"id": "1"}`)
	assert.ErrorIs(t, err, engine.ErrConstraint)

	_, err = c.run("", "read", "missing")
	assert.ErrorIs(t, err, engine.ErrNotFound)

	_, err = c.run("", "exec", "upsert", "users")
	assert.ErrorIs(t, err, action.ErrInvalidAction)

	_, err = c.run("", "update", "users", "--data", `{"name": "x"}`)
	assert.ErrorIs(t, err, action.ErrMissingKeyField)

	_, err = c.run("", "delete", "users")
	assert.Error(t, err)

	_, err = c.run("", "write", "users", "--data", `[1, 2]`)
	assert.ErrorIs(t, err, action.ErrInvalidPayload)

	_, err = c.run("", "read", "users", "--format", "xml")
	assert.Error(t, err)
}

func TestCLI_DeleteRange(t *testing.T) {
	c := newCLI(t)

	c.mustRun("collection", "create", "events", "--auto-increment")

	for i := 0; i < 5; i++ {
		c.mustRun("write", "events", "--data", `{"n": 0}`)
	}

	c.mustRun("delete", "events", "--lower", "2", "--upper", "4", "--upper-open")
	assert.Len(t, c.read("events"), 3)

	c.mustRun("delete", "events", "--lower", "4")
	assert.Len(t, c.read("events"), 1)
}

func TestCLI_Exec(t *testing.T) {
	c := newCLI(t)

	c.mustRun("collection", "create", "users", "--key-path", "id")
	c.mustRun("exec", "WRITE", "users", "--data", `{"id": 1}`)
	c.mustRun("exec", "write", "users", "--data", `{"id": 2}`)
	c.mustRun("exec", "delete", "users", "--key", "1")

	out := c.mustRun("exec", "read", "users")

	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Equal(t, []map[string]any{{"id": 2.0}}, records)
}

func TestCLI_CollectionsAndIndexes(t *testing.T) {
	c := newCLI(t)

	schema := filepath.Join(c.dir, "users.yaml")
	require.NoError(t, os.WriteFile(schema, []byte(`
name: users
key_path: id
indexes:
  - name: by_email
    key_path: email
    unique: true
`), 0600))

	c.mustRun("collection", "create", "--file", schema)
	c.mustRun("collection", "create", "grid", "--composite-key-path", "x,y")
	assert.Equal(t, "grid\nusers\n", c.mustRun("collection", "list"))

	c.mustRun("write", "users", "--data", `{"id": "1", "email": "a@example.com", "tags": ["x", "y"]}`)
	c.mustRun("index", "create", "users", "by_tag", "--key-path", "tags", "--multi-entry")

	out := c.mustRun("collection", "show", "users")
	assert.Contains(t, out, "by_email")
	assert.Contains(t, out, "by_tag")
	assert.Contains(t, out, "records: 1")

	_, err := c.run("", "write", "users", "--data", `{"id": "2", "email": "a@example.com"}`)
	assert.ErrorIs(t, err, engine.ErrConstraint)

	c.mustRun("index", "drop", "users", "by_email")
	c.mustRun("write", "users", "--data", `{"id": "2", "email": "a@example.com"}`)

	_, err = c.run("", "index", "drop", "users", "by_email")
	assert.ErrorIs(t, err, engine.ErrNotFound)

	c.mustRun("collection", "drop", "grid")
	assert.Equal(t, "users\n", c.mustRun("collection", "list"))
}

func TestCLI_ExportAndMetrics(t *testing.T) {
	c := newCLI(t)

	c.mustRun("collection", "create", "users", "--key-path", "id")
	c.mustRun("write", "users", "--data", `{"id": "1"}`)

	dest := filepath.Join(c.dir, "out.sqlite")
	prom := filepath.Join(c.dir, "recstore.prom")

	out := c.mustRun("--metrics-file", prom, "export", "--to", dest)
	assert.Equal(t, "users: 1 records\n", out)
	assert.FileExists(t, dest)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), `recstore_actions_total{action="read",outcome="ok"} 1`)
}

func TestCLI_Config(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("--log-format", "json", "config", "show")
	assert.Contains(t, out, "[database]")
	assert.Contains(t, out, filepath.Join(c.dir, "data.db"))
	assert.Contains(t, out, "json")

	dest := filepath.Join(c.dir, "copy.ini")
	c.mustRun("config", "init", dest)
	assert.FileExists(t, dest)

	_, err := c.run("", "config", "init", dest)
	assert.Error(t, err)

	c.mustRun("config", "init", dest, "--force")

	_, err = c.run("", "--log-level", "loud", "config", "show")
	assert.Error(t, err)

	out = c.mustRun("--log-level", "DEBUG", "--log-format", " JSON", "config", "show")
	assert.Contains(t, out, "debug")
	assert.NotContains(t, out, "DEBUG")
	assert.NotContains(t, out, "JSON")
}
