package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"budget-insight-api/pkg/dataset"
	"budget-insight-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetCSV = "Titre de l'opération;Titre du projet lauréat;Thématique;Edition;Arrondissement de l'opération;Avancement de l'opération;Opération en Quartier Populaire;Budget global du projet lauréat\n" +
	"Gymnase;Gymnase;Sport;2019;75011;FIN ABANDONNÉ;Oui;10000\n" +
	"Stade;Stade;Sport;2021;75012;En cours;Non;30000\n" +
	"Jardin;Jardin;Environnement;2020;75011;FIN;Oui;5000\n"

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ref.csv")
	require.NoError(t, os.WriteFile(path, []byte(datasetCSV), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReportCommand(t *testing.T) {
	out, err := execute(t, "report", "--dataset", writeDataset(t), "--category", "sport", "--budget", "20000", "--seed", "3")
	require.NoError(t, err)

	var resp models.PredictResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	m := resp.PredictedCategory.Metrics
	require.NotNil(t, m)
	assert.Equal(t, 2, m.NumberOfRecords)
	assert.Equal(t, 2019, m.StartingYear)
	assert.Equal(t, 2021, m.EndingYear)
	assert.Equal(t, int64(20000), m.Budget.Median)
	assert.Equal(t, models.StatusesPieChart{Abandoned: 1, InProgress: 1, Completed: 1}, m.Statuses.PieChart)
}

func TestReportCommandStrict(t *testing.T) {
	out, err := execute(t, "report", "--dataset", writeDataset(t), "--category", "Sport", "--budget", "1", "--strict")
	require.NoError(t, err)

	var resp models.PredictResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, models.StatusesPieChart{Abandoned: 1, InProgress: 1, Completed: 0}, resp.PredictedCategory.Metrics.Statuses.PieChart)
}

func TestReportCommandNoMatch(t *testing.T) {
	out, err := execute(t, "report", "--dataset", writeDataset(t), "--category", "Culture", "--budget", "1", "--no-data-message", "rien")
	require.NoError(t, err)
	assert.Contains(t, out, `"metrics": null`)
	assert.Contains(t, out, `"analyse": "rien"`)
}

func TestReportCommandErrors(t *testing.T) {
	_, err := execute(t, "report", "--category", "Sport", "--budget", "1")
	assert.Error(t, err, "dataset flag is required")

	_, err = execute(t, "report", "--dataset", writeDataset(t), "--category", "  ", "--budget", "1")
	assert.Error(t, err)

	_, err = execute(t, "report", "--dataset", filepath.Join(t.TempDir(), "missing.csv"), "--category", "Sport", "--budget", "1")
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Titre;Autre\na;b\n"), 0o600))
	_, err = execute(t, "report", "--dataset", bad, "--category", "Sport", "--budget", "1")
	assert.ErrorIs(t, err, dataset.ErrSchemaMismatch)
}

func TestSummaryCommand(t *testing.T) {
	out, err := execute(t, "summary", "--dataset", writeDataset(t))
	require.NoError(t, err)

	var summary models.DatasetSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 3, summary.NumberOfRecords)
	assert.Equal(t, []string{"Environnement", "Sport"}, summary.Themes)
	require.NotNil(t, summary.StartingYear)
	assert.Equal(t, 2019, *summary.StartingYear)
}

func TestClassifyCommandWithKeywordBackend(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv("CATEGORY_GLOSSARY_PATH", filepath.Join("..", "..", "configs", "category_glossary.yaml"))

	out, err := execute(t, "classify", "--backend", "keyword", "Nouvelle piste cyclable")
	require.NoError(t, err)

	var info models.PredictionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "Mobilité", info.Name)
	assert.Contains(t, info.Analyse, "Mots-clés")
}

func TestClassifyCommandRejectsUnknownBackend(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "none.yaml"))
	_, err := execute(t, "classify", "--backend", "oracle", "x")
	assert.Error(t, err)
}
