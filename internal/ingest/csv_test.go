package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWellFormedCourses(t *testing.T) {
	content := strings.Join([]string{
		"course_name,university_name,location,tuition_fee,duration,degree_type,description",
		"Computer Science,University of Toronto,Canada,12000 CAD per year,4 years,Bachelor,A comprehensive program",
		"Business Administration,Harvard University,USA,,,,",
	}, "\n")

	records, err := Parse(content, CourseSchema())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Computer Science", records[0][ColCourseName])
	assert.Equal(t, "University of Toronto", records[0][ColUniversityName])
	assert.Equal(t, "12000 CAD per year", records[0][ColTuitionFee])

	assert.Equal(t, "Business Administration", records[1][ColCourseName])
	assert.Equal(t, "Bachelor", records[1][ColDegreeType])
	assert.Equal(t, "", records[1][ColTuitionFee])
	assert.Equal(t, "", records[1][ColDuration])
	assert.Equal(t, "", records[1][ColDescription])
}

func TestParseQuotedFields(t *testing.T) {
	content := strings.Join([]string{
		"course_name,university_name,location",
		`"Economics, Politics and Law","King's College",UK`,
	}, "\n")

	records, err := Parse(content, CourseSchema())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Economics, Politics and Law", records[0][ColCourseName])
	assert.Equal(t, "King's College", records[0][ColUniversityName])
}

func TestParseEscapedQuotes(t *testing.T) {
	content := strings.Join([]string{
		"course_name,university_name,location",
		`"The ""Global"" MBA",INSEAD,France`,
	}, "\n")

	records, err := Parse(content, CourseSchema())
	require.NoError(t, err)
	assert.Equal(t, `The "Global" MBA`, records[0][ColCourseName])
}

func TestParseStripsBOM(t *testing.T) {
	content := "\uFEFFcourse_name,university_name,location\nPhysics,MIT,USA"

	records, err := Parse(content, CourseSchema())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Physics", records[0][ColCourseName])
}

func TestParseSkipsBlankLines(t *testing.T) {
	content := "course_name,university_name,location\n\nPhysics,MIT,USA\r\n\r\nChemistry,Oxford,UK\n"

	records, err := Parse(content, CourseSchema())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestParseEmptyInput(t *testing.T) {
	for _, content := range []string{"", "\n\n", "course_name,university_name,location"} {
		_, err := Parse(content, CourseSchema())
		require.Error(t, err)
		var emptyErr *EmptyInputError
		assert.ErrorAs(t, err, &emptyErr)
	}
}

func TestParseMissingRequiredColumn(t *testing.T) {
	content := "course_name,location\nPhysics,USA"

	records, err := Parse(content, CourseSchema())
	assert.Nil(t, records)
	var colErr *MissingColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, ColUniversityName, colErr.Column)
}

func TestParsePadsShortRows(t *testing.T) {
	content := strings.Join([]string{
		"course_name,university_name,location,tuition_fee,duration",
		"Physics,MIT,USA",
	}, "\n")

	records, err := Parse(content, CourseSchema())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0][ColTuitionFee])
	assert.Equal(t, "", records[0][ColDuration])
}

func TestParseRowShapeMismatch(t *testing.T) {
	content := strings.Join([]string{
		"course_name,university_name,location",
		"Physics,MIT,USA,extra,fields",
	}, "\n")

	_, err := Parse(content, CourseSchema())
	var shapeErr *RowShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, 2, shapeErr.Row)
	assert.Equal(t, 5, shapeErr.Columns)
	assert.Equal(t, 3, shapeErr.Headers)
}

func TestParseMissingRequiredValue(t *testing.T) {
	content := strings.Join([]string{
		"course_name,university_name,location",
		"Physics,MIT,USA",
		"Chemistry,,UK",
	}, "\n")

	records, err := Parse(content, CourseSchema())
	assert.Nil(t, records, "a row-level failure must abort the whole parse")
	var valueErr *MissingValueError
	require.ErrorAs(t, err, &valueErr)
	assert.Equal(t, ColUniversityName, valueErr.Column)
	assert.Equal(t, 3, valueErr.Row)
}

func TestParseDefaultsAbsentColumn(t *testing.T) {
	content := "course_name,university_name,location\nPhysics,MIT,USA"

	records, err := Parse(content, CourseSchema())
	require.NoError(t, err)
	assert.Equal(t, "Bachelor", records[0][ColDegreeType])
}

func TestParseDefaultsEmptyValue(t *testing.T) {
	content := strings.Join([]string{
		"course_name,university_name,location,degree_type",
		"Physics,MIT,USA,",
		"Law,Oxford,UK,Master",
	}, "\n")

	records, err := Parse(content, CourseSchema())
	require.NoError(t, err)
	assert.Equal(t, "Bachelor", records[0][ColDegreeType])
	assert.Equal(t, "Master", records[1][ColDegreeType])
}

func TestParseAgencySchema(t *testing.T) {
	content := strings.Join([]string{
		"name,location,description,contact_email,price",
		"Global Study Advisors,London,Full-service consultancy,hello@gsa.example,1500",
	}, "\n")

	records, err := Parse(content, AgencySchema())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Global Study Advisors", records[0][ColAgencyName])
	assert.Equal(t, "1500", records[0][ColPrice])
}

func TestParseAgencyMissingContactEmail(t *testing.T) {
	content := strings.Join([]string{
		"name,location,description,contact_email",
		"Global Study Advisors,London,Full-service consultancy,",
	}, "\n")

	_, err := Parse(content, AgencySchema())
	var valueErr *MissingValueError
	require.ErrorAs(t, err, &valueErr)
	assert.Equal(t, ColContactEmail, valueErr.Column)
	assert.Equal(t, 2, valueErr.Row)
}

func TestParseHeaderCaseInsensitive(t *testing.T) {
	content := "Course_Name,UNIVERSITY_NAME,Location\nPhysics,MIT,USA"

	records, err := Parse(content, CourseSchema())
	require.NoError(t, err)
	assert.Equal(t, "Physics", records[0][ColCourseName])
}
