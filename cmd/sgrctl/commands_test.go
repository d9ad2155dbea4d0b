package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgr/internal/risk"
	"sgr/pkg/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScore(t *testing.T) {
	out, err := execute(t, "score", "ALTO", "MUITO ALTO")
	require.NoError(t, err)
	assert.Contains(t, out, "criticidade: 20")
	assert.Contains(t, out, "severidade:  EXTREMO")
}

func TestScore_JSON(t *testing.T) {
	out, err := execute(t, "score", "médio", "baixo", "--json")
	require.NoError(t, err)

	var score risk.Score
	require.NoError(t, json.Unmarshal([]byte(out), &score))
	assert.Equal(t, risk.Score{Criticality: 6, Severity: risk.SeverityMedio}, score)
}

func TestScore_Incomplete(t *testing.T) {
	_, err := execute(t, "score", "ALTO", "QUASE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MUITO BAIXO")

	_, err = execute(t, "score", "ALTO")
	require.Error(t, err)
}

func TestTokenInspect(t *testing.T) {
	exp := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	raw := testutil.SignToken(t, exp, "PERFIL_ADMIN", "PERFIL_USUARIO")

	out, err := execute(t, "token", "inspect", raw, "--at", "2025-03-10T12:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "usuario.teste")
	assert.Contains(t, out, "PERFIL_ADMIN, PERFIL_USUARIO")
	assert.Contains(t, out, "2025-03-10T13:00:00Z")
	assert.Regexp(t, `authenticated\s+true`, out)

	out, err = execute(t, "token", "inspect", raw, "--at", "2025-03-10T13:00:00Z")
	require.NoError(t, err)
	assert.Regexp(t, `authenticated\s+false`, out, "expiry is exclusive")
}

func TestTokenInspect_Garbage(t *testing.T) {
	_, err := execute(t, "token", "inspect", "not-a-token")
	require.Error(t, err)

	_, err = execute(t, "token", "inspect", testutil.SignToken(t, time.Now()), "--at", "yesterday")
	require.Error(t, err)
}

func TestScreensValidate_Default(t *testing.T) {
	out, err := execute(t, "screens", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "/sgr/identificacaoriscos")
	assert.Contains(t, out, "5 screens OK")
}

func TestScreensValidate_File(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`screens:
  - name: painel
    path: /sgr/painel
    title: Painel
    capabilities:
      - { id: 1, authority: PERFIL_ADMIN }
`), 0o600))
	out, err := execute(t, "screens", "validate", "--file", good)
	require.NoError(t, err)
	assert.Contains(t, out, "1 screens OK")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`screens:
  - name: painel
    path: /sgr/painel
    title: Painel
`), 0o600))
	_, err = execute(t, "screens", "validate", "-f", bad)
	require.Error(t, err)
}
