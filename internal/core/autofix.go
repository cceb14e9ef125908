package core

// autofix.go applies corrections to a whole table outside of a validation
// pass. Every function returns a new table; callers decide whether the
// corrected copy replaces the working data.

import "strings"

// FixKind names one auto-correction that can run on its own.
type FixKind string

const (
	FixSpecialChars     FixKind = "specialChars"
	FixMobile           FixKind = "mobile"
	FixGender           FixKind = "gender"
	FixSpaces           FixKind = "spaces"
	FixMiddleName       FixKind = "middlename"
	FixMotherMaidenName FixKind = "motherMaiden"
	FixExtensionName    FixKind = "extension"
	FixRegion           FixKind = "region"
	FixBarangayID       FixKind = "barangayId"
)

// ApplyFix runs a single fix kind over every row and returns the corrected
// copy. Unknown kinds leave the table unchanged.
func ApplyFix(t *Table, kind FixKind) *Table {
	out := t.Clone()
	idx := out.Index()

	for _, row := range out.Rows {
		for colIdx, header := range out.Headers {
			field := StandardizeHeader(header)
			value := row[colIdx]

			switch kind {
			case FixSpecialChars:
				if isNameField(field) {
					value = CleanNameText(value)
				} else {
					value = CleanGeneralText(value, true)
				}
			case FixMobile:
				if field == FieldMobileNo {
					value = FormatMobile(value)
				}
			case FixGender:
				if field == FieldSex {
					value = FormatGender(value)
				}
			case FixSpaces:
				if field == FieldFirstName || field == FieldLastName {
					value = strings.TrimSpace(multiSpace.ReplaceAllString(value, " "))
				}
			case FixMiddleName:
				if field == FieldMiddleName {
					value = CleanMiddleName(value)
				}
			case FixMotherMaidenName:
				if field == FieldMotherMaidenName {
					value = CleanMotherMaidenName(value)
				}
			case FixExtensionName:
				if field == FieldExtensionName {
					value = CleanExtensionName(value)
				}
			case FixRegion:
				if field == FieldRegion {
					value = FormatRegion(value)
				}
			case FixBarangayID:
				if field == FieldIDNumber {
					if pos, ok := idx[FieldGovtIDType]; ok {
						idType := strings.ToUpper(strings.TrimSpace(row[pos]))
						if idType == "BARANGAY CERTIFICATE" {
							value = barangayCertificate
						}
					}
				}
			}

			row[colIdx] = value
		}
	}

	return out
}

// ApplyAllFixesExceptBarangay runs every field correction in one pass:
// general special-character cleanup on all columns, then the targeted
// formatters. The barangay-certificate fix is deliberately excluded; it
// rewrites IDNUMBER wholesale and is only applied on explicit request.
func ApplyAllFixesExceptBarangay(t *Table) *Table {
	out := t.Clone()

	for _, row := range out.Rows {
		for colIdx, header := range out.Headers {
			field := StandardizeHeader(header)
			value := CleanGeneralText(row[colIdx], true)

			switch field {
			case FieldMobileNo:
				value = FormatMobile(value)
			case FieldSex:
				value = FormatGender(value)
			case FieldFirstName, FieldLastName:
				value = strings.TrimSpace(multiSpace.ReplaceAllString(value, " "))
			case FieldMiddleName:
				value = CleanMiddleName(value)
			case FieldMotherMaidenName:
				value = CleanMotherMaidenName(value)
			case FieldExtensionName:
				value = CleanExtensionName(value)
			case FieldRegion:
				value = FormatRegion(value)
			}

			row[colIdx] = value
		}
	}

	return out
}

// ApplyBarangayCertificateFix sets IDNUMBER to the canonical value for
// rows whose government ID type is a barangay certificate. Composable with
// ApplyAllFixesExceptBarangay.
func ApplyBarangayCertificateFix(t *Table) *Table {
	return ApplyFix(t, FixBarangayID)
}
