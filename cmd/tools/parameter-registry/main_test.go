package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAddValidateResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "parameters.json")

	out, err := run(t, "add", "--path", path, "--id", "legal_cases", "--displayName", "Legal Proceedings",
		"--category", "legal", "--alias", "litigation", "--alias", "court case", "--weight", "0.04")
	require.NoError(t, err)
	assert.Contains(t, out, "Added parameter: legal_cases")

	_, err = run(t, "add", "--path", path, "--id", "legal_cases", "--displayName", "Dup",
		"--category", "legal", "--alias", "legal")
	require.Error(t, err)

	out, err = run(t, "validate", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 parameters")

	out, err = run(t, "resolve", "--path", path, "Pending Litigation", "Turnover")
	require.NoError(t, err)
	assert.Contains(t, out, "Pending Litigation\tlegal_cases")
	assert.Contains(t, out, "Turnover\t-")

	out, err = run(t, "list", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "legal_cases")
}

func TestAddRequiresFields(t *testing.T) {
	_, err := run(t, "add", "--path", filepath.Join(t.TempDir(), "p.json"), "--id", "x")
	assert.Error(t, err)
}
