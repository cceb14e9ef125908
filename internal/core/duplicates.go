package core

// duplicates.go is the duplicate detection engine. One scan builds the
// identifier and normalized-name indices, a second scan classifies each
// row. A row is a duplicate when its system number collides, or when a
// namesake shares either the same system number or the same birthdate and
// mother's maiden name. Duplicate remarks merge with a compact format
// rule list so the invalid set is self-contained.

import (
	"fmt"
	"regexp"
	"strings"
)

// Remarks messages appended by the duplicate engine.
const (
	RemarkDuplicateSystemNumber = "DUPLICATE SYSTEM NUMBER"
	RemarkDuplicateName         = "DUPLICATE NAME"
)

// DuplicateResult partitions records into clean rows and rows carrying
// remarks. Remarks are pipe-joined in the order the rules fired.
type DuplicateResult struct {
	ValidRows   []Record        `json:"validRows"`
	InvalidRows []FlaggedRecord `json:"invalidRows"`
}

// FlaggedRecord is a record with its accumulated remarks.
type FlaggedRecord struct {
	Record
	Remarks string `json:"remarks"`
}

// dupeRule is a quick per-row format check evaluated alongside duplicate
// grouping, so exported remarks explain every problem at once.
type dupeRule struct {
	fields  []string
	check   func(value string) bool
	message func(field string) string
}

var (
	enyeProbe        = regexp.MustCompile(`[ñÑ]`)
	dupeSpecialProbe = regexp.MustCompile(`[#@$%^&*ñÑ]`)
	dupeMotherProbe  = regexp.MustCompile(`[.#@$%^&*ñÑ]`)
)

func duplicateRules(idPattern *regexp.Regexp) []dupeRule {
	return []dupeRule{
		{
			fields: RequiredFields,
			check:  func(v string) bool { return v == "" },
			message: func(f string) string {
				return fmt.Sprintf("MISSING %s", f)
			},
		},
		{
			fields: []string{FieldFirstName, FieldLastName},
			check:  func(v string) bool { return v != "" && len(strings.TrimSpace(v)) < 2 },
			message: func(f string) string {
				return fmt.Sprintf("INVALID %s (TOO SHORT)", f)
			},
		},
		{
			fields: NameFields,
			check:  func(v string) bool { return v != "" && enyeProbe.MatchString(v) },
			message: func(f string) string {
				return fmt.Sprintf("INVALID %s (CONTAINS Ñ/ñ)", f)
			},
		},
		{
			fields: []string{FieldExtensionName},
			check:  func(v string) bool { return v != "" && dupeSpecialProbe.MatchString(v) },
			message: func(string) string {
				return "INVALID EXTENSIONNAME (SPECIAL CHARS)"
			},
		},
		{
			fields: []string{FieldMotherMaidenName},
			check:  func(v string) bool { return v != "" && dupeMotherProbe.MatchString(v) },
			message: func(string) string {
				return "INVALID MOTHERMAIDENNAME (SPECIAL CHARS)"
			},
		},
		{
			fields: []string{FieldBirthdate},
			check:  func(v string) bool { return v != "" && !birthdateProbe.MatchString(v) },
			message: func(string) string {
				return "INVALID DATE FORMAT"
			},
		},
		{
			fields: []string{FieldIdentifier},
			check:  func(v string) bool { return v != "" && !idPattern.MatchString(v) },
			message: func(string) string {
				return "INVALID RSBSA NUMBER"
			},
		},
		{
			fields: []string{FieldSex},
			check: func(v string) bool {
				g := strings.ToUpper(v)
				return v != "" && g != "MALE" && g != "FEMALE"
			},
			message: func(string) string {
				return "INVALID GENDER"
			},
		},
		{
			fields: []string{FieldStreetNo, FieldBarangay, FieldCityMunicipality, FieldProvince, FieldRegion},
			check:  func(v string) bool { return v != "" && dupeSpecialProbe.MatchString(v) },
			message: func(f string) string {
				return fmt.Sprintf("INVALID %s (SPECIAL CHARS)", f)
			},
		},
	}
}

// nameKey builds the lowercased full-name grouping key. The second return
// is false when every name part is empty; such rows never join a name
// group, otherwise all anonymous rows would collapse into one.
func nameKey(fields StandardizedRow) (string, bool) {
	first := fields[FieldFirstName]
	middle := fields[FieldMiddleName]
	last := fields[FieldLastName]
	ext := fields[FieldExtensionName]
	if first == "" && middle == "" && last == "" && ext == "" {
		return "", false
	}
	return strings.ToLower(first + "_" + middle + "_" + last + "_" + ext), true
}

// DetectDuplicates classifies records using the given identifier
// convention. The relation behind DUPLICATE NAME is symmetric: if A is
// flagged because of B, B is flagged because of A.
func DetectDuplicates(records []Record, format IdentifierFormat) *DuplicateResult {
	idIndex := make(map[string][]int, len(records))
	nameIndex := make(map[string][]int, len(records))

	for i, rec := range records {
		if id := rec.Fields[FieldIdentifier]; id != "" {
			idIndex[id] = append(idIndex[id], i)
		}
		if key, ok := nameKey(rec.Fields); ok {
			nameIndex[key] = append(nameIndex[key], i)
		}
	}

	rules := duplicateRules(format.Pattern())
	result := &DuplicateResult{}

	for i, rec := range records {
		var remarks []string

		for _, rule := range rules {
			for _, field := range rule.fields {
				if rule.check(rec.Fields[field]) {
					remarks = append(remarks, rule.message(field))
				}
			}
		}

		if id := rec.Fields[FieldIdentifier]; id != "" && len(idIndex[id]) > 1 {
			remarks = append(remarks, RemarkDuplicateSystemNumber)
		}

		if key, ok := nameKey(rec.Fields); ok {
			if group := nameIndex[key]; len(group) > 1 && hasNamesakeCollision(records, rec, i, group) {
				remarks = append(remarks, RemarkDuplicateName)
			}
		}

		if len(remarks) > 0 {
			result.InvalidRows = append(result.InvalidRows, FlaggedRecord{
				Record:  rec,
				Remarks: strings.Join(remarks, " | "),
			})
		} else {
			result.ValidRows = append(result.ValidRows, rec)
		}
	}

	return result
}

// hasNamesakeCollision reports whether any other member of the name group
// shares this record's identifier, or both its birthdate and mother's
// maiden name.
func hasNamesakeCollision(records []Record, rec Record, self int, group []int) bool {
	id := rec.Fields[FieldIdentifier]
	birth := rec.Fields[FieldBirthdate]
	mother := rec.Fields[FieldMotherMaidenName]

	for _, j := range group {
		if j == self {
			continue
		}
		other := records[j].Fields
		if id != "" && other[FieldIdentifier] == id {
			return true
		}
		if other[FieldBirthdate] == birth && other[FieldMotherMaidenName] == mother {
			return true
		}
	}
	return false
}
