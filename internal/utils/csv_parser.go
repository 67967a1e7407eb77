package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"plan-eligibility-engine/internal/models"
)

// CSVParser errors
var (
	ErrEmptyCSV       = errors.New("CSV content is empty")
	ErrMissingColumns = errors.New("missing required columns")
	ErrNoDataRows     = errors.New("CSV file contains no data rows")
)

// ListSeparator separates values inside a list cell. Condition names use "/", "," and "-".
const ListSeparator = ";"

// RequiredColumns defines the columns that must be present in a catalog CSV.
var RequiredColumns = []string{
	"company_name",
	"product_name",
}

// ColumnAliases maps alternative column names to standard names.
var ColumnAliases = map[string]string{
	// plan id aliases
	"plan_id": "id",
	"planid":  "id",

	// company aliases
	"company":      "company_name",
	"companyname":  "company_name",
	"company name": "company_name",
	"carrier":      "company_name",
	"provider":     "company_name",

	// product aliases
	"product":      "product_name",
	"productname":  "product_name",
	"product name": "product_name",
	"plan_name":    "product_name",
	"plan name":    "product_name",

	"category":         "product_category",
	"product category": "product_category",

	// price aliases
	"price":           "product_price_monthly",
	"monthly_price":   "product_price_monthly",
	"monthly price":   "product_price_monthly",
	"premium":         "product_price_monthly",
	"monthly_premium": "product_price_monthly",

	"benefits": "product_benefits",

	// geography aliases
	"states":    "available_states",
	"state":     "available_states",
	"zip_codes": "available_zip_codes",
	"zips":      "available_zip_codes",
	"zip":       "available_zip_codes",

	"coverage":   "coverage_type",
	"age":        "age_range",
	"ages":       "age_range",
	"age range":  "age_range",
	"buildchart": "build_chart",
	"build":      "build_chart",

	// disqualifier aliases
	"health_conditions":        "disqualifying_health_conditions",
	"disqualifying_conditions": "disqualifying_health_conditions",
	"conditions":               "disqualifying_health_conditions",
	"medications":              "disqualifying_medications",
	"disqualifying_meds":       "disqualifying_medications",
}

// CSVParser handles parsing of plan catalog CSV files.
type CSVParser struct {
	columnMapping map[string]int
}

// NewCSVParser creates a new CSV parser instance.
func NewCSVParser() *CSVParser {
	return &CSVParser{
		columnMapping: make(map[string]int),
	}
}

// ParsePlans parses CSV content into insurance plans. Rows that fail to parse
// or validate are reported by line number and skipped.
func (p *CSVParser) ParsePlans(content string) ([]*models.InsurancePlan, []error) {
	if strings.TrimSpace(content) == "" {
		return nil, []error{ErrEmptyCSV}
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, []error{fmt.Errorf("failed to read header: %w", err)}
	}

	if err := p.buildColumnMapping(header); err != nil {
		return nil, []error{err}
	}

	var plans []*models.InsurancePlan
	var parseErrors []error
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}
		if isBlankRecord(record) {
			continue
		}

		plan, err := p.parseRow(record)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		if err := models.ValidatePlan(plan); err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		plans = append(plans, plan)
	}

	if len(plans) == 0 {
		return nil, append([]error{ErrNoDataRows}, parseErrors...)
	}

	return plans, parseErrors
}

// normalizeColumn lowercases a header and resolves its alias.
func normalizeColumn(col string) string {
	normalized := strings.ToLower(strings.TrimSpace(col))
	if alias, ok := ColumnAliases[normalized]; ok {
		return alias
	}
	return normalized
}

// buildColumnMapping creates a mapping of standard column names to their indices.
func (p *CSVParser) buildColumnMapping(header []string) error {
	p.columnMapping = make(map[string]int)

	for i, col := range header {
		p.columnMapping[normalizeColumn(col)] = i
	}

	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := p.columnMapping[required]; !ok {
			missing = append(missing, required)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return nil
}

// parseRow parses a single CSV row into an InsurancePlan. Optional columns
// that are absent or blank leave the field unrestricted.
func (p *CSVParser) parseRow(record []string) (*models.InsurancePlan, error) {
	getValue := func(column string) string {
		idx, ok := p.columnMapping[column]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	plan := &models.InsurancePlan{
		ID:                            getValue("id"),
		CompanyName:                   getValue("company_name"),
		ProductName:                   getValue("product_name"),
		ProductCategory:               getValue("product_category"),
		ProductBenefits:               getValue("product_benefits"),
		AvailableStates:               splitList(getValue("available_states")),
		AvailableZipCodes:             splitList(getValue("available_zip_codes")),
		CoverageType:                  models.CoverageType(getValue("coverage_type")),
		AgeRange:                      getValue("age_range"),
		DisqualifyingHealthConditions: splitList(getValue("disqualifying_health_conditions")),
		DisqualifyingMedications:      splitList(getValue("disqualifying_medications")),
		IsActive:                      true,
	}

	if priceStr := getValue("product_price_monthly"); priceStr != "" {
		price, err := parseFloat(priceStr)
		if err != nil {
			return nil, fmt.Errorf("invalid product_price_monthly: %w", err)
		}
		plan.ProductPriceMonthly = price
	}

	if chart := getValue("build_chart"); chart != "" {
		if err := json.Unmarshal([]byte(chart), &plan.BuildChart); err != nil {
			return nil, fmt.Errorf("invalid build_chart: %w", err)
		}
	}

	plan.Normalize()
	return plan, nil
}

// splitList splits a list cell on ListSeparator, dropping blank entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var values []string
	for _, part := range strings.Split(s, ListSeparator) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// parseFloat parses a string to float64, handling common formats.
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}

	// Remove commas and currency symbols
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)

	return strconv.ParseFloat(s, 64)
}

// ValidateCSVStructure performs a quick validation of CSV structure without full parsing.
func ValidateCSVStructure(content string) (*CSVValidationResult, error) {
	result := &CSVValidationResult{
		Valid:          false,
		RowCount:       0,
		Columns:        []string{},
		MissingColumns: []string{},
		Errors:         []string{},
	}

	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, "empty file")
		return result, nil
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read header: %v", err))
		return result, nil
	}

	normalizedColumns := make(map[string]bool)
	for _, col := range header {
		normalizedColumns[normalizeColumn(col)] = true
		result.Columns = append(result.Columns, col)
	}

	for _, required := range RequiredColumns {
		if !normalizedColumns[required] {
			result.MissingColumns = append(result.MissingColumns, required)
		}
	}

	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row error: %v", err))
			continue
		}
		result.RowCount++
	}

	result.Valid = len(result.MissingColumns) == 0 && result.RowCount > 0

	return result, nil
}

// CSVValidationResult contains the results of CSV validation.
type CSVValidationResult struct {
	Valid          bool     `json:"valid"`
	RowCount       int      `json:"row_count"`
	Columns        []string `json:"columns"`
	MissingColumns []string `json:"missing_columns"`
	Errors         []string `json:"errors"`
}
