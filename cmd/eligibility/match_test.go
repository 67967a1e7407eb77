package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan-eligibility-engine/internal/models"
	"plan-eligibility-engine/internal/services/matcher"
)

const testCatalog = `company_name,product_name,product_price_monthly,available_states,age_range,disqualifying_health_conditions
Acme Health,Silver,100,CA;NY,18-64,Cancer
Acme Health,Senior,150,CA,65+,
Blue Shield,Bronze,80,TX,,
`

const testClient = `{"full_name":"Ana Ruiz","state":"ca","age":32,"gender":"female","height":{"height_feet":5,"height_inches":5},"weight":140}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestMatchCommand(t *testing.T) {
	dir := t.TempDir()
	clientPath := writeFile(t, dir, "client.json", testClient)
	catalogPath := writeFile(t, dir, "plans.csv", testCatalog)
	outPath := filepath.Join(dir, "result.json")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"match", "--client", clientPath, "--catalog", catalogPath, "--out", outPath})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stdout.String(), "1 of 3 plans eligible")

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var result MatchOutput
	require.NoError(t, json.Unmarshal(content, &result))
	require.Len(t, result.Eligible, 1)
	assert.Equal(t, "Silver", result.Eligible[0].ProductName)
	assert.Equal(t, 3, result.TotalPlans)
	assert.Equal(t, 1, result.Rejections[matcher.CheckState])
	assert.Equal(t, 1, result.Rejections[matcher.CheckAge])
}

func TestLoadCatalog_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plans.json", `[{"company_name":"Acme Health","product_name":"Silver","available_states":["CA"]}]`)

	plans, err := loadCatalog(path)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, []string{"CA"}, plans[0].AvailableStates)

	path = writeFile(t, dir, "invalid.json", `[{"company_name":"Acme Health"}]`)
	_, err = loadCatalog(path)
	assert.Error(t, err)
}

func TestLoadCatalog_JSONIsNormalized(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plans.json", `[{
		"company_name": "Acme Health",
		"product_name": "Silver",
		"available_states": ["ca", " ny "],
		"coverage_type": "Family",
		"build_chart": [{"gender": "m", "height_feet": 5, "height_inches": 10, "min_weight": 120, "max_weight": 220}]
	}]`)

	plans, err := loadCatalog(path)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, []string{"CA", "NY"}, plans[0].AvailableStates)
	assert.Equal(t, models.CoverageTypeFamily, plans[0].CoverageType)
	assert.Equal(t, models.GenderMale, plans[0].BuildChart[0].Gender)
}

func TestLoadCatalog_NoValidRows(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plans.csv", "company_name,product_name\n,\n")

	_, err := loadCatalog(path)
	assert.Error(t, err)
}
