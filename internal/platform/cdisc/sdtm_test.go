package cdisc

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func str(s string) *string { return &s }

func testStudyData() *StudyData {
	return &StudyData{
		Study: StudyInfo{
			ID:         uuid.MustParse("6b1e9df2-83f5-4f52-9f84-1f2ff3b7a111"),
			Identifier: "PX-01",
			Name:       "Demo",
			Protocol:   "PX-01",
		},
	}
}

// ── DM ──

func TestGenerateSDTM_DMRowPerParticipant(t *testing.T) {
	data := testStudyData()
	data.Subjects = []Subject{
		{ID: "p1", SubjectID: "001", Gender: str("female"), Status: "active", EnrollmentDate: date(2024, 1, 10)},
		{ID: "p2", SubjectID: "002", Gender: str("male"), Status: "active"},
		{ID: "p3", SubjectID: "003"},
	}
	out := GenerateSDTM(data, []Domain{DomainDM}, testNow)
	rows := out[DomainDM].([]DMRow)
	if len(rows) != 3 {
		t.Fatalf("expected 3 DM rows, got %d", len(rows))
	}
	seen := make(map[string]bool)
	for _, row := range rows {
		if seen[row.USUBJID] {
			t.Errorf("duplicate USUBJID %s", row.USUBJID)
		}
		seen[row.USUBJID] = true
	}
}

func TestGenerateSDTM_DMDerivations(t *testing.T) {
	data := testStudyData()
	data.Subjects = []Subject{
		{ID: "P1", SubjectID: "001", Gender: str("female"), Status: "active", EnrollmentDate: date(2024, 1, 10)},
	}
	out := GenerateSDTM(data, []Domain{DomainDM, DomainQS}, testNow)

	if _, ok := out[DomainQS]; ok {
		t.Error("expected no QS key without responses")
	}
	rows := out[DomainDM].([]DMRow)
	if len(rows) != 1 {
		t.Fatalf("expected 1 DM row, got %d", len(rows))
	}
	row := rows[0]
	if row.STUDYID != "PX-01" || row.DOMAIN != "DM" || row.USUBJID != "001" || row.SITEID != "001" {
		t.Errorf("key variables wrong: %+v", row)
	}
	if row.AGE != nil || row.AGEU != nil {
		t.Errorf("expected null AGE/AGEU without date of birth, got %v/%v", row.AGE, row.AGEU)
	}
	if row.SEX != "F" {
		t.Errorf("expected SEX F, got %s", row.SEX)
	}
	if row.RACE != "NOT REPORTED" || row.ETHNIC != "NOT REPORTED" || row.COUNTRY != "USA" {
		t.Errorf("constant variables wrong: %+v", row)
	}
	if row.RFSTDTC == nil || *row.RFSTDTC != "2024-01-10" {
		t.Errorf("expected RFSTDTC 2024-01-10, got %v", row.RFSTDTC)
	}
	if row.RFENDTC != nil {
		t.Errorf("expected null RFENDTC, got %v", row.RFENDTC)
	}
}

func TestDMRow_NullsMarshalAsNull(t *testing.T) {
	row := DMRow{STUDYID: "PX-01", DOMAIN: "DM", USUBJID: "001"}
	out, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]interface{}
	json.Unmarshal(out, &decoded)
	for _, key := range []string{"AGE", "AGEU", "RFSTDTC", "RFENDTC"} {
		val, present := decoded[key]
		if !present {
			t.Errorf("expected %s key to be present", key)
		}
		if val != nil {
			t.Errorf("expected %s to be null, got %v", key, val)
		}
	}
}

func TestDeriveAge_Boundary(t *testing.T) {
	// Exactly 365.25 x 30 days before now.
	dob := testNow.Add(-time.Duration(365.25 * 30 * 24 * float64(time.Hour)))
	age := deriveAge(&dob, testNow)
	if age == nil || *age != 30 {
		t.Errorf("expected age 30, got %v", age)
	}
	if deriveAge(nil, testNow) != nil {
		t.Error("expected nil age without date of birth")
	}
}

func TestDeriveSex(t *testing.T) {
	cases := []struct {
		gender *string
		want   string
	}{
		{str("female"), "F"},
		{str("male"), "M"},
		{str("other"), "O"},
		{str("žena"), "Ž"},
		{str(""), "U"},
		{nil, "U"},
	}
	for _, tc := range cases {
		if got := deriveSex(tc.gender); got != tc.want {
			t.Errorf("deriveSex(%v): expected %s, got %s", tc.gender, tc.want, got)
		}
	}
}

// ── QS ──

func TestGenerateSDTM_QSFlattening(t *testing.T) {
	data := testStudyData()
	data.Subjects = []Subject{{ID: "p1", SubjectID: "001"}}
	data.Responses = []Response{
		{
			ParticipantID: "p1",
			Title:         "Baseline",
			SubmittedAt:   date(2024, 2, 1),
			Items: []ResponseItem{
				{Key: "a", Value: "x"},
				{Key: "b", Value: `["y","z"]`},
			},
		},
		{
			ParticipantID: "p1",
			Items: []ResponseItem{
				{Key: "pain_level_morning", Value: "7"},
			},
		},
	}
	out := GenerateSDTM(data, []Domain{DomainQS}, testNow)
	rows := out[DomainQS].([]QSRow)
	if len(rows) != 3 {
		t.Fatalf("expected 3 QS rows, got %d", len(rows))
	}

	// Sequence restarts per response.
	if rows[0].QSSEQ != 1 || rows[1].QSSEQ != 2 || rows[2].QSSEQ != 1 {
		t.Errorf("QSSEQ wrong: %d %d %d", rows[0].QSSEQ, rows[1].QSSEQ, rows[2].QSSEQ)
	}
	if rows[0].QSCAT != "Baseline" || rows[2].QSCAT != "QUESTIONNAIRE" {
		t.Errorf("QSCAT wrong: %s / %s", rows[0].QSCAT, rows[2].QSCAT)
	}
	if rows[1].QSORRES != `["y","z"]` || rows[1].QSSTRESC != `["y","z"]` {
		t.Errorf("array value not kept as JSON text: %+v", rows[1])
	}
	if rows[2].QSTESTCD != "PAIN_LEV" {
		t.Errorf("expected QSTESTCD truncated to 8 chars, got %s", rows[2].QSTESTCD)
	}
	if rows[0].QSDTC != "2024-02-01" {
		t.Errorf("expected QSDTC from submission date, got %s", rows[0].QSDTC)
	}
	if rows[2].QSDTC != "2024-06-01" {
		t.Errorf("expected QSDTC to default to today, got %s", rows[2].QSDTC)
	}
	if rows[0].VISITNUM != 1 || rows[0].VISIT != "SCREENING" {
		t.Errorf("visit constants wrong: %+v", rows[0])
	}
	if rows[0].USUBJID != "p1" {
		t.Errorf("expected QS USUBJID to carry the participant record id, got %s", rows[0].USUBJID)
	}
}

func TestGenerateSDTM_EmptyAnswersYieldNoRows(t *testing.T) {
	data := testStudyData()
	data.Responses = []Response{{ParticipantID: "p1"}}
	out := GenerateSDTM(data, []Domain{DomainQS}, testNow)
	if _, ok := out[DomainQS]; ok {
		t.Error("expected no QS key when every response is empty")
	}
}

// ── DS ──

func TestGenerateSDTM_DSSequenceFollowsInputOrder(t *testing.T) {
	data := testStudyData()
	data.Subjects = []Subject{
		{ID: "p1", SubjectID: "001", Status: "withdrawn", EnrollmentDate: date(2024, 1, 1), CompletionDate: date(2024, 3, 1)},
		{ID: "p2", SubjectID: "002", Status: ""},
	}
	out := GenerateSDTM(data, []Domain{DomainDS}, testNow)
	rows := out[DomainDS].([]DSRow)
	if len(rows) != 2 {
		t.Fatalf("expected 2 DS rows, got %d", len(rows))
	}
	if rows[0].DSSEQ != 1 || rows[1].DSSEQ != 2 {
		t.Errorf("DSSEQ wrong: %d %d", rows[0].DSSEQ, rows[1].DSSEQ)
	}
	if rows[0].DSTERM != "WITHDRAWN" || rows[0].DSDECOD != "WITHDRAWN" {
		t.Errorf("DSTERM wrong: %+v", rows[0])
	}
	if rows[1].DSTERM != "ONGOING" {
		t.Errorf("expected default DSTERM ONGOING, got %s", rows[1].DSTERM)
	}
	if rows[0].DSCAT != "DISPOSITION EVENT" {
		t.Errorf("DSCAT wrong: %s", rows[0].DSCAT)
	}
}

// ── Filtering ──

func TestGenerateSDTM_DomainFiltering(t *testing.T) {
	data := testStudyData()
	data.Subjects = []Subject{{ID: "p1", SubjectID: "001"}}
	data.Responses = []Response{{ParticipantID: "p1", Items: []ResponseItem{{Key: "a", Value: "x"}}}}

	out := GenerateSDTM(data, []Domain{DomainQS}, testNow)
	if _, ok := out[DomainDM]; ok {
		t.Error("DM must not appear when not requested")
	}
	if _, ok := out[DomainDS]; ok {
		t.Error("DS must not appear when not requested")
	}
	if _, ok := out[DomainQS]; !ok {
		t.Error("QS missing")
	}
}

func TestGenerateSDTM_UnimplementedDomainsSilentlyOmitted(t *testing.T) {
	data := testStudyData()
	data.Subjects = []Subject{{ID: "p1", SubjectID: "001"}}
	out := GenerateSDTM(data, []Domain{DomainDM, DomainAE, DomainVS, DomainLB, DomainCM}, testNow)
	if len(out) != 1 {
		t.Errorf("expected only DM in output, got %d domains", len(out))
	}
}
