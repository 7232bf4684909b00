package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statementCSV = "Data;Descrição;Valor;Saldo\n" +
	"15/03/2025;PIX RECEBIDO JOAO;50,00;100,00\n" +
	"16/03/2025;TARIFA MENSAL;-12,50;87,50\n"

type cli struct {
	t   *testing.T
	dir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("EXPORT_LAYOUTS_FILE", "")
	t.Setenv("METRICS_TEXTFILE", "")
	return &cli{t: t, dir: t.TempDir()}
}

// run executes one invocation against the test data directory.
func (c *cli) run(args ...string) (string, string, error) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	args = append(args, "--data-dir", filepath.Join(c.dir, "data"), "--env-file", filepath.Join(c.dir, "missing.env"))
	err := Execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, stderr, err := c.run(args...)
	require.NoError(c.t, err, stderr)
	return out
}

func (c *cli) writeFile(name, content string) string {
	c.t.Helper()
	path := filepath.Join(c.dir, name)
	require.NoError(c.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportAndList(t *testing.T) {
	c := newCLI(t)
	path := c.writeFile("extrato.csv", statementCSV)

	out := c.mustRun("import", path)
	assert.Contains(t, out, "extrato.csv: imported 2 transactions")

	out = c.mustRun("transactions", "list")
	assert.Contains(t, out, "PIX RECEBIDO JOAO")
	assert.Contains(t, out, "TARIFA MENSAL")

	out = c.mustRun("tx", "list", "--from", "2025-03-16")
	assert.NotContains(t, out, "PIX RECEBIDO JOAO")
	assert.Contains(t, out, "TARIFA MENSAL")

	out = c.mustRun("transactions", "stats")
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "0.0%")
}

func TestImport_UnsupportedFile(t *testing.T) {
	c := newCLI(t)
	path := c.writeFile("extrato.docx", "whatever")

	_, stderr, err := c.run("import", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 files failed")
	assert.Contains(t, stderr, "extrato.docx")
}

func TestRuleClassifiesAndExports(t *testing.T) {
	c := newCLI(t)
	c.mustRun("import", c.writeFile("extrato.csv", statementCSV))

	out := c.mustRun("rules", "add", "--term", "tarifa", "--movement", "outgoing",
		"--label", "Tarifas", "--debit", "3.1.1", "--credit", "1.1.1")
	assert.Contains(t, out, "applied to 1 transactions")

	out = c.mustRun("rules", "list")
	assert.Contains(t, out, "tarifa")
	assert.Contains(t, out, "Tarifas")

	out = c.mustRun("export", "--format", "csv", "-o", "-", "--mapped", "mapped")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "16/03/2025,TARIFA MENSAL,-12.50,Debit,Genérico,Tarifas,3.1.1,1.1.1,", lines[1])

	out = c.mustRun("remap")
	assert.Contains(t, out, "of 2 transactions")
}

func TestExport_ToFile(t *testing.T) {
	c := newCLI(t)
	c.mustRun("import", c.writeFile("extrato.csv", statementCSV))

	target := filepath.Join(c.dir, "out.txt")
	out := c.mustRun("export", "--format", "txt", "-o", target)
	assert.Contains(t, out, "2 transactions written")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "20250316|"))
	assert.True(t, strings.HasPrefix(lines[1], "20250315|"))
}

func TestExport_UnknownLayout(t *testing.T) {
	c := newCLI(t)
	target := filepath.Join(c.dir, "out.csv")

	_, _, err := c.run("export", "--layout", "missing", "-o", target)
	require.Error(t, err)
	assert.NoFileExists(t, target)
}

func TestTemplates(t *testing.T) {
	c := newCLI(t)
	path := c.writeFile("templates.yaml", `
- bank: Banco X
  format: csv
  column_map:
    date: 0
    description: 1
    amount: 2
  skip_top_lines: 1
`)

	out := c.mustRun("templates", "add", "-f", path)
	assert.Contains(t, out, "template banco_x saved")

	out = c.mustRun("templates", "list")
	assert.Contains(t, out, "banco_x")
	assert.Contains(t, out, "date=0 description=1 amount=2")

	out = c.mustRun("templates", "delete", "Banco X")
	assert.Contains(t, out, "template banco_x deleted")

	_, _, err := c.run("templates", "delete", "Banco X")
	assert.Error(t, err)
}

func TestTemplates_RejectsInvalidFile(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("templates", "add", "-f", c.writeFile("bad.yaml", "- bank: Banco X\n  format: xls\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid bank template")

	_, _, err = c.run("templates", "add", "-f", c.writeFile("empty.yaml", ""))
	assert.ErrorIs(t, err, errNoEntries)
}

func TestMappingsAndPresets(t *testing.T) {
	c := newCLI(t)
	path := c.writeFile("mappings.yaml", `
- ledger_label: Transferências recebidas
  movement_type_filter: incoming
  keywords: [pix recebido]
  debit_account: 1.1.1
  credit_account: 4.1.1
`)

	out := c.mustRun("mappings", "add", "-f", path)
	assert.Contains(t, out, "(Transferências recebidas)")

	out = c.mustRun("mappings", "list")
	assert.Contains(t, out, "pix recebido")

	out = c.mustRun("presets", "save", "Base")
	assert.Contains(t, out, `preset "Base" saved with 1 mappings`)

	c.mustRun("import", c.writeFile("extrato.csv", statementCSV))
	out = c.mustRun("transactions", "stats")
	assert.Contains(t, out, "50.0%")

	out = c.mustRun("presets", "list")
	assert.Contains(t, out, "Base")

	out = c.mustRun("presets", "delete", "base")
	assert.Contains(t, out, "deleted")
}

func TestClearRequiresConfirmation(t *testing.T) {
	c := newCLI(t)
	c.mustRun("import", c.writeFile("extrato.csv", statementCSV))

	_, _, err := c.run("transactions", "clear")
	require.Error(t, err)

	out := c.mustRun("transactions", "clear", "--yes")
	assert.Contains(t, out, "removed 2 transactions")
}

func TestFilterFlags(t *testing.T) {
	f := filterFlags{mapped: "sometimes"}
	_, err := f.filter()
	assert.Error(t, err)

	f = filterFlags{mapped: "unmapped", from: "2025-03-01", to: "03/2025"}
	_, err = f.filter()
	assert.ErrorContains(t, err, "--to")
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitIDs([]string{"a, b", " ", "c"}))
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"import", "remap", "refresh", "edit", "transactions", "templates", "mappings", "rules", "presets", "suggest", "export"} {
		assert.Contains(t, names, want)
	}
	assert.True(t, root.CompletionOptions.DisableDefaultCmd)
}
