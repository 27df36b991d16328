package ingest

// Column names accepted by the bulk upload endpoints.
const (
	ColCourseName     = "course_name"
	ColUniversityName = "university_name"
	ColLocation       = "location"
	ColTuitionFee     = "tuition_fee"
	ColDuration       = "duration"
	ColDegreeType     = "degree_type"
	ColDescription    = "description"

	ColAgencyName   = "name"
	ColContactEmail = "contact_email"
	ColContactPhone = "contact_phone"
	ColWebsite      = "website"
	ColBusinessHrs  = "business_hours"
	ColPrice        = "price"
	ColTrustScore   = "trust_score"
)

// CourseSchema returns the shape of a bulk course upload.
func CourseSchema() Schema {
	return Schema{
		Required: []string{ColCourseName, ColUniversityName, ColLocation},
		Defaults: map[string]string{ColDegreeType: "Bachelor"},
	}
}

// AgencySchema returns the shape of a bulk agency upload.
func AgencySchema() Schema {
	return Schema{
		Required: []string{ColAgencyName, ColLocation, ColDescription, ColContactEmail},
	}
}
