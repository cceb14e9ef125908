package core

// fields.go defines the canonical field vocabulary for beneficiary records.
//
// Canonical field names are derived from spreadsheet headers by trimming and
// upper-casing (StandardizeHeader). Validators only act on fields they
// recognize; unknown columns pass through untouched.

import "strings"

// Canonical field names recognized by the validation and matching engines.
const (
	FieldIdentifier       = "RSBSASYSTEMGENERATEDNUMBER"
	FieldFirstName        = "FIRSTNAME"
	FieldMiddleName       = "MIDDLENAME"
	FieldLastName         = "LASTNAME"
	FieldExtensionName    = "EXTENSIONNAME"
	FieldSex              = "SEX"
	FieldBirthdate        = "BIRTHDATE"
	FieldMotherMaidenName = "MOTHERMAIDENNAME"
	FieldMobileNo         = "MOBILENO"
	FieldGovtIDType       = "GOVTIDTYPE"
	FieldIDNumber         = "IDNUMBER"
	FieldStreetNo         = "STREETNO_PUROKNO"
	FieldBarangay         = "BARANGAY"
	FieldCityMunicipality = "CITYMUNICIPALITY"
	FieldDistrict         = "DISTRICT"
	FieldProvince         = "PROVINCE"
	FieldRegion           = "REGION"
	FieldPlaceOfBirth     = "PLACEOFBIRTH"
	FieldNationality      = "NATIONALITY"
	FieldProfession       = "PROFESSION"
	FieldSourceOfFunds    = "SOURCEOFFUNDS"
	FieldFarmParcels      = "NOOFFARMPARCEL"
)

// RequiredFields must be non-empty on every row.
var RequiredFields = []string{
	FieldFirstName,
	FieldLastName,
	FieldIdentifier,
	FieldSex,
	FieldBirthdate,
}

// NoSpecialCharFields are address/demographic fields restricted to
// letters, digits, spaces, hyphens, periods and commas.
var NoSpecialCharFields = []string{
	FieldStreetNo,
	FieldBarangay,
	FieldCityMunicipality,
	FieldDistrict,
	FieldProvince,
	FieldRegion,
	FieldPlaceOfBirth,
	FieldNationality,
	FieldProfession,
	FieldSourceOfFunds,
	FieldMotherMaidenName,
	FieldFarmParcels,
}

// NameFields are person-name fields with letter/space/hyphen rules.
var NameFields = []string{FieldFirstName, FieldLastName, FieldMiddleName}

// headerAliases maps alternate spellings seen in uploaded files to the
// canonical field name. Keys and values are already standardized.
var headerAliases = map[string]string{
	"RSBSA_NO":    FieldIdentifier,
	"RSBSANO":     FieldIdentifier,
	"FIRST_NAME":  FieldFirstName,
	"MIDDLE_NAME": FieldMiddleName,
	"LAST_NAME":   FieldLastName,
	"SURNAME":     FieldLastName,
	"EXT_NAME":    FieldExtensionName,
	"GENDER":      FieldSex,
}

// StandardizeHeader converts raw header text to its canonical form:
// trimmed, upper-cased, known aliases resolved.
func StandardizeHeader(name string) string {
	std := strings.ToUpper(strings.TrimSpace(name))
	if canon, ok := headerAliases[std]; ok {
		return canon
	}
	return std
}

func isRequiredField(field string) bool {
	for _, f := range RequiredFields {
		if f == field {
			return true
		}
	}
	return false
}

func isNoSpecialCharField(field string) bool {
	for _, f := range NoSpecialCharFields {
		if f == field {
			return true
		}
	}
	return false
}

func isNameField(field string) bool {
	for _, f := range NameFields {
		if f == field {
			return true
		}
	}
	return false
}
