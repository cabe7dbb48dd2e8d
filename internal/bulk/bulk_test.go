package bulk

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/s/leadBoard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCanonicalColumn(t *testing.T) {
	cases := map[string]string{
		"Name":           ColName,
		" Mobile Number": ColMobileNumber,
		"phone":          ColMobileNumber,
		"Course ID":      ColCourseID,
		"course":         ColCourseID,
		"LEAD_STATUS":    ColStatus,
		"card-type":      ColCardTypeID,
		"favourite":      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalColumn(in), in)
	}
}

func TestParseMissingColumns(t *testing.T) {
	_, err := Parse(strings.NewReader("Name,Email\nAnna,a@example.com\n"), Options{})

	var mce *MissingColumnsError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, []string{ColMobileNumber, ColCourseID, ColStatus}, mce.Columns)
	assert.Contains(t, err.Error(), "mobile_number, course_id, status")

	_, err = Parse(strings.NewReader(""), Options{})
	require.True(t, errors.As(err, &mce))
}

func TestParseValidFile(t *testing.T) {
	in := "\xEF\xBB\xBF" + `"Name","Mobile","Course ID","Status","Email","Batch","Total Fee","Fee Status"
Anna,555-0101,1,Enquiry,anna@example.com,4,"1,200",partial

Ben,555-0102,2,cv build,,,,
`
	res, err := Parse(strings.NewReader(in), Options{
		Known:             map[string]map[uint]bool{ColCourseID: {1: true, 2: true}},
		DefaultUnitID:     9,
		DefaultCardTypeID: 8,
	})
	require.NoError(t, err)
	require.True(t, res.OK(), "%v", res.Issues)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Leads, 2)

	anna := res.Leads[0]
	assert.Equal(t, "Anna", anna.Name)
	assert.Equal(t, models.StatusEnquiry, anna.Status)
	assert.Equal(t, models.FeePartial, anna.FeeStatus)
	assert.Equal(t, 1200.0, anna.TotalFee)
	require.NotNil(t, anna.BatchID)
	assert.Equal(t, uint(4), *anna.BatchID)
	assert.Equal(t, uint(9), anna.UnitID)
	assert.Equal(t, uint(8), anna.CardTypeID)

	ben := res.Leads[1]
	assert.Equal(t, models.StatusCVBuild, ben.Status)
	assert.Equal(t, models.FeePending, ben.FeeStatus)
	assert.Nil(t, ben.BatchID)
}

func TestParseCollectsRowIssues(t *testing.T) {
	in := `name,mobile number,course id,status
Anna,555-0101,1,enquiry
,555-0102,1,prospect
Cara,555-0103,abc,won
Dan,555-0104,7,prospect
`
	res, err := Parse(strings.NewReader(in), Options{
		Known: map[string]map[uint]bool{ColCourseID: {1: true}},
	})
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, 4, res.Total)
	assert.Len(t, res.Leads, 1)

	assert.Equal(t, []Issue{
		{Row: 3, Field: ColName, Message: "is required"},
		{Row: 4, Field: ColCourseID, Message: `"abc" is not a valid id`},
		{Row: 4, Field: ColStatus, Message: `unknown status "won"`},
		{Row: 5, Field: ColCourseID, Message: "no record with id 7"},
	}, res.Issues)
}

func TestParseHeaderOnly(t *testing.T) {
	_, err := Parse(strings.NewReader("name,mobile,course,status\n\n"), Options{})
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestSampleCSVParses(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SampleCSV(&buf))

	res, err := Parse(&buf, Options{DefaultUnitID: 1, DefaultCardTypeID: 1})
	require.NoError(t, err)
	require.True(t, res.OK(), "%v", res.Issues)
	assert.Len(t, res.Leads, 1)
}

func exportFixture() []models.Lead {
	batch := uint(3)
	return []models.Lead{{
		ID:           11,
		Name:         "Anna",
		MobileNumber: "555-0101",
		CourseID:     1,
		Status:       models.StatusProspect,
		FeeStatus:    models.FeePaid,
		TotalFee:     999.5,
		UnitID:       1,
		CardTypeID:   2,
		BatchID:      &batch,
		Course:       models.Course{Title: "Go Basics"},
		Assignee:     &models.User{Name: "Sam"},
		CreatedAt:    time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exportFixture()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))
	assert.Contains(t, buf.String(), "Go Basics,Sam,2024-05-01 09:30")

	res, err := Parse(bytes.NewReader(buf.Bytes()), Options{})
	require.NoError(t, err)
	require.True(t, res.OK(), "%v", res.Issues)
	require.Len(t, res.Leads, 1)
	assert.Equal(t, models.StatusProspect, res.Leads[0].Status)
	assert.Equal(t, 999.5, res.Leads[0].TotalFee)
	assert.Equal(t, uint(2), res.Leads[0].CardTypeID)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, exportFixture()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ExportHeader, rows[0])
	assert.Equal(t, "Anna", rows[1][1])
	assert.Equal(t, "Go Basics", rows[1][len(ExportHeader)-3])
}
