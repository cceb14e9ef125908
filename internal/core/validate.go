package core

// validate.go is the row validation engine. It applies the full rule set to
// every data row, interleaving enabled auto-fixes with validation per field
// so checks always judge the final cell value. The input table is never
// mutated; corrected values land in the result's Fixed table and the caller
// decides whether to keep them.

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// IdentifierFormat selects which system-number convention a deployment
// accepts. Two conventions exist in the field and must not be mixed, so the
// choice is fixed configuration, never auto-detected.
type IdentifierFormat string

const (
	// IdentifierStandard is the 2-2-2-3-6 digit-group convention.
	IdentifierStandard IdentifierFormat = "standard"
	// IdentifierLegacy is the older 2-3-2-3-6 digit-group convention.
	IdentifierLegacy IdentifierFormat = "legacy"
)

var (
	identifierStandardRe = regexp.MustCompile(`^\d{2}-\d{2}-\d{2}-\d{3}-\d{6}$`)
	identifierLegacyRe   = regexp.MustCompile(`^\d{2}-\d{3}-\d{2}-\d{3}-\d{6}$`)
)

// Pattern returns the compiled regexp for the format. Unknown values fall
// back to the standard convention.
func (f IdentifierFormat) Pattern() *regexp.Regexp {
	if f == IdentifierLegacy {
		return identifierLegacyRe
	}
	return identifierStandardRe
}

// Valid reports whether the format name is recognized.
func (f IdentifierFormat) Valid() bool {
	return f == IdentifierStandard || f == IdentifierLegacy
}

// AutoFixOptions selects which corrections run before validation. The zero
// value disables every fix. Options are always passed explicitly; there is
// no ambient fix state.
type AutoFixOptions struct {
	CleanSpecialChars     bool `json:"cleanSpecialChars"`
	FormatMobileNumbers   bool `json:"formatMobileNumbers"`
	StandardizeGender     bool `json:"standardizeGender"`
	CleanMiddleNames      bool `json:"cleanMiddleNames"`
	CleanSpaces           bool `json:"cleanSpaces"`
	StandardizeRegion     bool `json:"standardizeRegion"`
	CleanMotherMaidenName bool `json:"cleanMotherMaidenName"`
	CleanExtensionName    bool `json:"cleanExtensionName"`
}

// Issue is one validation finding attributed to an exact cell.
// Row is 1-based over data rows, Column is 1-based over headers.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value"`
	Row     int    `json:"row"`
	Column  int    `json:"column"`
}

// CellRef addresses a cell in the error index.
type CellRef struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// RowIssues couples an invalid row with everything found on it.
type RowIssues struct {
	Row      int             `json:"row"`
	Fields   StandardizedRow `json:"fields"`
	Errors   []Issue         `json:"errors"`
	Warnings []Issue         `json:"warnings"`
}

// RowRef is a valid row reference in a validation result.
type RowRef struct {
	Row    int             `json:"row"`
	Fields StandardizedRow `json:"fields"`
}

// ValidationResult is the complete outcome of one validation pass.
/// Invariants: a row is in InvalidRows iff it has at least one error;
// every error has exactly one CellErrors entry for its cell.
type ValidationResult struct {
	Errors      []Issue          `json:"errors"`
	Warnings    []Issue          `json:"warnings"`
	ValidRows   []RowRef         `json:"validRows"`
	InvalidRows []RowIssues      `json:"invalidRows"`
	CellErrors  map[CellRef]bool `json:"-"`

	// Fixed is a copy of the input table with auto-fixes (and the
	// mother's-maiden-name cleanup) applied.
	Fixed *Table `json:"-"`
}

// Validator runs the rule set with a fixed identifier convention and
// reference time for age checks.
type Validator struct {
	idPattern *regexp.Regexp
	now       func() time.Time
}

// NewValidator builds a validator for the given identifier format.
func NewValidator(format IdentifierFormat) *Validator {
	return &Validator{idPattern: format.Pattern(), now: time.Now}
}

// WithNow fixes the reference time for age computation. Used by tests.
func (v *Validator) WithNow(now func() time.Time) *Validator {
	v.now = now
	return v
}

var (
	specialCharProbe = regexp.MustCompile(`[^a-zA-Z0-9\s\-.,]`)
	nameCharProbe    = regexp.MustCompile(`[^a-zA-Z\s-]`)
	digitProbe       = regexp.MustCompile(`\d`)
	extraSpaceProbe  = regexp.MustCompile(`\s{2,}`)
	hardSpecialProbe = regexp.MustCompile(`[#@$%^&*]`)
	birthdateProbe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// barangayCertificate is the exact value IDNUMBER must carry when the
// government ID type is a barangay certificate.
const barangayCertificate = "Barangay Certificate"

// Validate classifies every row of the table. Auto-fix application and
// validation are interleaved per field in column order: when a fix is
// enabled for a field the corrected value replaces the cell before any
// check on that field runs.
func (v *Validator) Validate(t *Table, opts AutoFixOptions) *ValidationResult {
	return v.ValidateRows(t, opts, nil)
}

// ValidateRows validates only the given 1-based row numbers, keeping
// their source numbering so cell errors stay addressable. A nil selection
// validates every row. Rows outside the selection are carried into Fixed
// unchanged.
func (v *Validator) ValidateRows(t *Table, opts AutoFixOptions, rowNums []int) *ValidationResult {
	result := &ValidationResult{
		CellErrors: make(map[CellRef]bool),
		Fixed:      t.Clone(),
	}
	idx := t.Index()

	if rowNums == nil {
		rowNums = make([]int, len(t.Rows))
		for i := range t.Rows {
			rowNums[i] = i + 1
		}
	}

	for _, rowNum := range rowNums {
		if rowNum < 1 || rowNum > len(result.Fixed.Rows) {
			continue
		}
		row := result.Fixed.Rows[rowNum-1]
		fields := make(StandardizedRow, len(t.Headers))

		var rowErrors, rowWarnings []Issue
		addError := func(header, message, value string, col int) {
			rowErrors = append(rowErrors, Issue{
				Field: header, Message: message, Value: value,
				Row: rowNum, Column: col,
			})
			result.CellErrors[CellRef{Row: rowNum, Column: col}] = true
		}
		addWarning := func(header, message, value string, col int) {
			rowWarnings = append(rowWarnings, Issue{
				Field: header, Message: message, Value: value,
				Row: rowNum, Column: col,
			})
		}

		for colIdx, header := range t.Headers {
			colNum := colIdx + 1
			field := StandardizeHeader(header)
			value := row[colIdx]

			value = applyFixes(field, value, opts)
			row[colIdx] = value
			fields[field] = value

			if isRequiredField(field) && value == "" {
				addError(header, "Required field is empty", value, colNum)
			}

			if value == "" {
				continue
			}

			if isNoSpecialCharField(field) && specialCharProbe.MatchString(value) {
				addError(header, "Contains invalid special characters", value, colNum)
			}

			if isNameField(field) {
				if nameCharProbe.MatchString(value) {
					addError(header, "Contains invalid characters (only letters, spaces and hyphens allowed)", value, colNum)
				}
				if len(strings.ReplaceAll(value, " ", "")) < 2 {
					addError(header, "Must be at least 2 characters", value, colNum)
				}
				if digitProbe.MatchString(value) {
					addError(header, "Contains numbers (only letters allowed)", value, colNum)
				}
				if extraSpaceProbe.MatchString(value) {
					addWarning(header, "Extra spaces detected", value, colNum)
				}
			}

			switch field {
			case FieldIdentifier:
				if !v.idPattern.MatchString(value) {
					addError(header, "Invalid system number format", value, colNum)
				}

			case FieldIDNumber:
				// GOVTIDTYPE may sit in any column, so read it from the
				// row directly instead of relying on column order.
				var govtType string
				if pos, ok := idx[FieldGovtIDType]; ok {
					govtType = row[pos]
				}
				idType := strings.ToUpper(strings.TrimSpace(govtType))
				if idType == "BARANGAY CERTIFICATE" &&
					strings.ToUpper(strings.TrimSpace(value)) != "BARANGAY CERTIFICATE" {
					addError(header, `Must be exactly "Barangay Certificate" when ID type is Barangay Certificate`, value, colNum)
				}

			case FieldMobileNo:
				if len(nonDigit.ReplaceAllString(value, "")) != 10 {
					addError(header, "Mobile number must be 10 digits", value, colNum)
				}

			case FieldSex:
				if g := strings.ToUpper(value); g != "MALE" && g != "FEMALE" {
					addError(header, "Invalid gender (must be MALE or FEMALE)", value, colNum)
				}

			case FieldBirthdate:
				if !birthdateProbe.MatchString(value) {
					addError(header, "Invalid date format (YYYY-MM-DD required)", value, colNum)
					break
				}
				birth, err := time.Parse("2006-01-02", value)
				if err != nil {
					addError(header, "Invalid date format (YYYY-MM-DD required)", value, colNum)
					break
				}
				if age := ageAt(birth, v.now()); age < 18 || age > 100 {
					addError(header, fmt.Sprintf("Age must be 18-100 (current: %d)", age), value, colNum)
				}

			case FieldMotherMaidenName:
				cleaned := CleanMotherMaidenName(value)
				if cleaned != strings.TrimSpace(value) {
					addWarning(header, "Special characters detected and cleaned", value, colNum)
					row[colIdx] = cleaned
					fields[field] = cleaned
				}

			case FieldExtensionName:
				if strings.Contains(value, ".") {
					addWarning(header, "Remove periods from extension name", value, colNum)
				}

			case FieldProvince:
				if hardSpecialProbe.MatchString(value) {
					addError(header, "Invalid province format (special characters not allowed)", value, colNum)
				}

			case FieldCityMunicipality:
				if hardSpecialProbe.MatchString(value) {
					addError(header, "Invalid city/municipality format (special characters not allowed)", value, colNum)
				}
			}
		}

		if len(rowErrors) > 0 {
			result.InvalidRows = append(result.InvalidRows, RowIssues{
				Row: rowNum, Fields: fields,
				Errors: rowErrors, Warnings: rowWarnings,
			})
			result.Errors = append(result.Errors, rowErrors...)
		} else {
			result.ValidRows = append(result.ValidRows, RowRef{Row: rowNum, Fields: fields})
		}
		result.Warnings = append(result.Warnings, rowWarnings...)
	}

	return result
}

// applyFixes runs the enabled transforms for one field in their fixed
// order. CleanSpecialChars applies to every field, the rest are targeted.
func applyFixes(field, value string, opts AutoFixOptions) string {
	if opts.CleanSpecialChars {
		value = CleanGeneralText(value, true)
	}
	if opts.FormatMobileNumbers && field == FieldMobileNo {
		value = FormatMobile(value)
	}
	if opts.StandardizeGender && field == FieldSex {
		value = FormatGender(value)
	}
	if opts.CleanMiddleNames && field == FieldMiddleName {
		value = CleanMiddleName(value)
	}
	if opts.CleanSpaces && (field == FieldFirstName || field == FieldLastName) {
		value = strings.TrimSpace(multiSpace.ReplaceAllString(value, " "))
	}
	if opts.StandardizeRegion && field == FieldRegion {
		value = FormatRegion(value)
	}
	if opts.CleanMotherMaidenName && field == FieldMotherMaidenName {
		value = CleanMotherMaidenName(value)
	}
	if opts.CleanExtensionName && field == FieldExtensionName {
		value = CleanExtensionName(value)
	}
	return value
}

// ageAt computes whole years between birth and now, counting a year only
// once its month and day have been reached.
func ageAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}
