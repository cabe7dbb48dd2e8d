package bulk

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/s/leadBoard/internal/models"
)

// Canonical column names, in the order of the sample file.
const (
	ColName         = "name"
	ColMobileNumber = "mobile_number"
	ColCourseID     = "course_id"
	ColStatus       = "status"
	ColEmail        = "email"
	ColRole         = "role"
	ColCompany      = "company"
	ColLocation     = "location"
	ColSource       = "source"
	ColBatchID      = "batch_id"
	ColTrainerID    = "trainer_id"
	ColUnitID       = "unit_id"
	ColCardTypeID   = "card_type_id"
	ColFeeStatus    = "fee_status"
	ColTotalFee     = "total_fee"
	ColPaidFee      = "paid_fee"
	ColComments     = "comments"
)

var (
	Header    = []string{ColName, ColMobileNumber, ColCourseID, ColStatus, ColEmail, ColRole, ColCompany, ColLocation, ColSource, ColBatchID, ColTrainerID, ColUnitID, ColCardTypeID, ColFeeStatus, ColTotalFee, ColPaidFee, ColComments}
	Mandatory = []string{ColName, ColMobileNumber, ColCourseID, ColStatus}

	ErrNoRows = errors.New("the file has no data rows")

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

var aliases = map[string]string{
	"fullname":     ColName,
	"leadname":     ColName,
	"mobile":       ColMobileNumber,
	"mobileno":     ColMobileNumber,
	"phone":        ColMobileNumber,
	"phonenumber":  ColMobileNumber,
	"course":       ColCourseID,
	"courseid":     ColCourseID,
	"leadstatus":   ColStatus,
	"emailaddress": ColEmail,
	"batch":        ColBatchID,
	"batchid":      ColBatchID,
	"trainer":      ColTrainerID,
	"trainerid":    ColTrainerID,
	"unit":         ColUnitID,
	"unitid":       ColUnitID,
	"cardtype":     ColCardTypeID,
	"cardtypeid":   ColCardTypeID,
	"fee":          ColTotalFee,
	"totalfee":     ColTotalFee,
	"paidfee":      ColPaidFee,
	"paid":         ColPaidFee,
	"feestatus":    ColFeeStatus,
	"comment":      ColComments,
	"notes":        ColComments,
}

func init() {
	for _, h := range Header {
		aliases[compact(h)] = h
	}
}

func compact(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	r := strings.NewReplacer(" ", "", "_", "", "-", "", ".", "")
	return r.Replace(s)
}

// CanonicalColumn maps a header cell to its canonical name, or "" when unknown.
func CanonicalColumn(h string) string {
	return aliases[compact(h)]
}

// MissingColumnsError rejects a file before any row is looked at.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing mandatory column(s): " + strings.Join(e.Columns, ", ")
}

// Issue is one problem found in one row. Row numbers count the header as row 1.
type Issue struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Options struct {
	// Known restricts id columns to existing records, keyed by column name.
	// Columns without an entry are not checked.
	Known map[string]map[uint]bool

	DefaultUnitID     uint
	DefaultCardTypeID uint
}

type Result struct {
	Leads  []models.Lead
	Issues []Issue
	Total  int
}

func (r Result) OK() bool { return len(r.Issues) == 0 }

// Parse reads a lead CSV. A missing mandatory column is returned as a
// *MissingColumnsError; row problems are collected in Result.Issues and the
// rows that had them are left out of Result.Leads.
func Parse(r io.Reader, opt Options) (Result, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, &MissingColumnsError{Columns: Mandatory}
	}
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}

	index := map[string]int{}
	for i, h := range head {
		if col := CanonicalColumn(h); col != "" {
			if _, dup := index[col]; !dup {
				index[col] = i
			}
		}
	}
	var missing []string
	for _, col := range Mandatory {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return Result{}, &MissingColumnsError{Columns: missing}
	}

	var res Result
	rowNum := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			res.Issues = append(res.Issues, Issue{Row: rowNum, Message: err.Error()})
			continue
		}
		if blank(record) {
			continue
		}
		res.Total++

		row := rowReader{record: record, index: index, num: rowNum, known: opt.Known}
		lead := row.lead(opt)
		if len(row.issues) > 0 {
			res.Issues = append(res.Issues, row.issues...)
			continue
		}
		res.Leads = append(res.Leads, lead)
	}

	if res.Total == 0 && len(res.Issues) == 0 {
		return res, ErrNoRows
	}
	return res, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

type rowReader struct {
	record []string
	index  map[string]int
	num    int
	known  map[string]map[uint]bool
	issues []Issue
}

func (r *rowReader) get(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r *rowReader) fail(col, format string, args ...interface{}) {
	r.issues = append(r.issues, Issue{Row: r.num, Field: col, Message: fmt.Sprintf(format, args...)})
}

func (r *rowReader) required(col string) string {
	v := r.get(col)
	if v == "" {
		r.fail(col, "is required")
	}
	return v
}

func (r *rowReader) id(col string, required bool) uint {
	raw := r.get(col)
	if raw == "" {
		if required {
			r.fail(col, "is required")
		}
		return 0
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		r.fail(col, "%q is not a valid id", raw)
		return 0
	}
	id := uint(n)
	if set, ok := r.known[col]; ok && !set[id] {
		r.fail(col, "no record with id %d", id)
		return 0
	}
	return id
}

func (r *rowReader) optionalID(col string) *uint {
	if id := r.id(col, false); id != 0 {
		return &id
	}
	return nil
}

func (r *rowReader) money(col string) float64 {
	raw := r.get(col)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || v < 0 {
		r.fail(col, "%q is not a valid amount", raw)
		return 0
	}
	return v
}

func (r *rowReader) lead(opt Options) models.Lead {
	l := models.Lead{
		Name:         r.required(ColName),
		MobileNumber: r.required(ColMobileNumber),
		CourseID:     r.id(ColCourseID, true),
		Email:        r.get(ColEmail),
		Role:         r.get(ColRole),
		Company:      r.get(ColCompany),
		Location:     r.get(ColLocation),
		Source:       r.get(ColSource),
		Comments:     r.get(ColComments),
		BatchID:      r.optionalID(ColBatchID),
		TrainerID:    r.optionalID(ColTrainerID),
		UnitID:       r.id(ColUnitID, false),
		CardTypeID:   r.id(ColCardTypeID, false),
		TotalFee:     r.money(ColTotalFee),
		PaidFee:      r.money(ColPaidFee),
		FeeStatus:    models.FeePending,
	}
	if l.UnitID == 0 {
		l.UnitID = opt.DefaultUnitID
	}
	if l.CardTypeID == 0 {
		l.CardTypeID = opt.DefaultCardTypeID
	}

	if raw := r.required(ColStatus); raw != "" {
		s, err := models.ParseLeadStatus(raw)
		if err != nil {
			r.fail(ColStatus, "unknown status %q", raw)
		}
		l.Status = s
	}
	if raw := r.get(ColFeeStatus); raw != "" {
		fs := models.FeeStatus(strings.ToLower(raw))
		if !fs.Valid() {
			r.fail(ColFeeStatus, "unknown fee status %q", raw)
		}
		l.FeeStatus = fs
	}
	return l
}
