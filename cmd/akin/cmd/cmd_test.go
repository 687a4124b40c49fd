package cmd

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vimo-dev/akin/internal/config"
	"github.com/vimo-dev/akin/internal/model"
	"github.com/vimo-dev/akin/internal/relstore"
)

// isolatedHome points $HOME (and thus config.DefaultDBPath) at a fresh temp
// directory so CLI tests never touch the real user's akin database.
func isolatedHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func seedPairAndUnits(t *testing.T) (projectID int64) {
	t.Helper()
	rel, err := relstore.Open(config.DefaultDBPath())
	require.NoError(t, err)
	defer rel.Close()

	projectID, err = rel.GetOrCreateProject("demo", "/demo/root", model.LangRust)
	require.NoError(t, err)

	bodyA := "fn foo() {}"
	bodyB := "fn bar() {}"
	require.NoError(t, rel.UpsertCodeUnit(&model.CodeUnit{
		QualifiedName: "rust:lib.rs::foo",
		ProjectID:     projectID,
		FilePath:      "lib.rs",
		Kind:          model.KindFunction,
		RangeStart:    1,
		RangeEnd:      1,
		Body:          bodyA,
		ContentHash:   model.ContentHash(bodyA),
		StructureHash: model.StructureHash(bodyA),
	}))
	require.NoError(t, rel.UpsertCodeUnit(&model.CodeUnit{
		QualifiedName: "rust:lib.rs::bar",
		ProjectID:     projectID,
		FilePath:      "lib.rs",
		Kind:          model.KindFunction,
		RangeStart:    2,
		RangeEnd:      2,
		Body:          bodyB,
		ContentHash:   model.ContentHash(bodyB),
		StructureHash: model.StructureHash(bodyB),
	}))
	require.NoError(t, rel.UpsertSimilarPair("rust:lib.rs::foo", "rust:lib.rs::bar", 0.9, "scan"))
	return projectID
}

func TestProjectsCmd_ListsSeededProject(t *testing.T) {
	isolatedHome(t)
	seedPairAndUnits(t)

	out, err := runCLI(t, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "/demo/root")
}

func TestProjectsCmd_EmptyDatabasePrintsMessage(t *testing.T) {
	isolatedHome(t)

	out, err := runCLI(t, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "no projects indexed yet")
}

func TestStatusCmd_ReportsUnitAndPairCounts(t *testing.T) {
	isolatedHome(t)
	seedPairAndUnits(t)

	out, err := runCLI(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "code units:   2")
}

func TestPairsCmd_ListsSeededPair(t *testing.T) {
	isolatedHome(t)
	seedPairAndUnits(t)

	out, err := runCLI(t, "pairs")
	require.NoError(t, err)
	assert.Contains(t, out, "rust:lib.rs::bar")
	assert.Contains(t, out, "rust:lib.rs::foo")
}

func TestIgnoreCmd_TransitionsPairStatusToIgnored(t *testing.T) {
	isolatedHome(t)
	seedPairAndUnits(t)

	_, err := runCLI(t, "ignore", "rust:lib.rs::foo", "rust:lib.rs::bar")
	require.NoError(t, err)

	out, err := runCLI(t, "pairs", "--status", "ignored")
	require.NoError(t, err)
	assert.Contains(t, out, "rust:lib.rs::bar")
}

func TestGroupLifecycle_CreateAddListMembers(t *testing.T) {
	isolatedHome(t)
	projectID := seedPairAndUnits(t)
	projectIDStr := strconv.FormatInt(projectID, 10)

	out, err := runCLI(t, "group", "create", projectIDStr, "ctors", "--reason", "all init methods")
	require.NoError(t, err)
	assert.Contains(t, out, "created group")

	groupID := "1"
	_, err = runCLI(t, "group", "add", groupID, "rust:lib.rs::foo")
	require.NoError(t, err)

	out, err = runCLI(t, "group", "list", projectIDStr)
	require.NoError(t, err)
	assert.Contains(t, out, "ctors")

	out, err = runCLI(t, "group", "members", groupID)
	require.NoError(t, err)
	assert.Contains(t, out, "rust:lib.rs::foo")
}

func TestScanCmd_AllScansEveryProject(t *testing.T) {
	isolatedHome(t)
	seedPairAndUnits(t)

	out, err := runCLI(t, "scan", "--all", "--threshold", "0")
	require.NoError(t, err)
	assert.NotContains(t, out, "not been indexed")
	_ = out
}

func TestScanCmd_UnindexedPathFails(t *testing.T) {
	isolatedHome(t)
	seedPairAndUnits(t)

	_, err := runCLI(t, "scan", t.TempDir())
	assert.Error(t, err)
}

func TestVersionCmd_PrintsVersion(t *testing.T) {
	isolatedHome(t)
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestPairsCmd_LimitCapsOutput(t *testing.T) {
	isolatedHome(t)
	seedPairAndUnits(t)

	rel, err := relstore.Open(config.DefaultDBPath())
	require.NoError(t, err)
	body := "fn baz() {}"
	require.NoError(t, rel.UpsertCodeUnit(&model.CodeUnit{
		QualifiedName: "rust:lib.rs::baz",
		ProjectID:     1,
		FilePath:      "lib.rs",
		Kind:          model.KindFunction,
		RangeStart:    3,
		RangeEnd:      3,
		Body:          body,
		ContentHash:   model.ContentHash(body),
		StructureHash: model.StructureHash(body),
	}))
	require.NoError(t, rel.UpsertSimilarPair("rust:lib.rs::foo", "rust:lib.rs::baz", 0.95, "scan"))
	require.NoError(t, rel.Close())

	out, err := runCLI(t, "pairs", "--limit", "1")
	require.NoError(t, err)
	// Pairs are ordered by similarity descending, so only the 0.95 pair
	// survives the limit.
	assert.Contains(t, out, "0.950")
	assert.NotContains(t, out, "0.900")
}
