package cdisc

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DMRow is one Demographics record. Nullable variables marshal as JSON
// null, not as absent keys.
type DMRow struct {
	STUDYID string  `json:"STUDYID"`
	DOMAIN  string  `json:"DOMAIN"`
	USUBJID string  `json:"USUBJID"`
	SITEID  string  `json:"SITEID"`
	AGE     *int    `json:"AGE"`
	AGEU    *string `json:"AGEU"`
	SEX     string  `json:"SEX"`
	RACE    string  `json:"RACE"`
	ETHNIC  string  `json:"ETHNIC"`
	COUNTRY string  `json:"COUNTRY"`
	RFSTDTC *string `json:"RFSTDTC"`
	RFENDTC *string `json:"RFENDTC"`
}

// QSRow is one Questionnaires record, one per answer key.
type QSRow struct {
	STUDYID  string `json:"STUDYID"`
	DOMAIN   string `json:"DOMAIN"`
	USUBJID  string `json:"USUBJID"`
	QSSEQ    int    `json:"QSSEQ"`
	QSCAT    string `json:"QSCAT"`
	QSTEST   string `json:"QSTEST"`
	QSTESTCD string `json:"QSTESTCD"`
	QSORRES  string `json:"QSORRES"`
	QSSTRESC string `json:"QSSTRESC"`
	QSDTC    string `json:"QSDTC"`
	VISITNUM int    `json:"VISITNUM"`
	VISIT    string `json:"VISIT"`
}

// DSRow is one Disposition record.
type DSRow struct {
	STUDYID string  `json:"STUDYID"`
	DOMAIN  string  `json:"DOMAIN"`
	USUBJID string  `json:"USUBJID"`
	DSSEQ   int     `json:"DSSEQ"`
	DSTERM  string  `json:"DSTERM"`
	DSDECOD string  `json:"DSDECOD"`
	DSCAT   string  `json:"DSCAT"`
	DSSTDTC *string `json:"DSSTDTC"`
	DSENDTC *string `json:"DSENDTC"`
}

const (
	siteID       = "001"
	notReported  = "NOT REPORTED"
	defaultCntry = "USA"
)

// GenerateSDTM builds the requested tabulation domains from the snapshot.
// DM and DS keys appear whenever requested; QS appears only when at least
// one row exists. Requested domains without a generator (AE, CM, VS, LB)
// are silently omitted. Generation never fails: absent source fields
// degrade to nulls or defaults.
func GenerateSDTM(data *StudyData, domains []Domain, now time.Time) map[Domain]interface{} {
	requested := make(map[Domain]bool, len(domains))
	for _, d := range domains {
		requested[d] = true
	}

	out := make(map[Domain]interface{})
	if requested[DomainDM] {
		out[DomainDM] = generateDM(data, now)
	}
	if requested[DomainQS] {
		if rows := generateQS(data, now); len(rows) > 0 {
			out[DomainQS] = rows
		}
	}
	if requested[DomainDS] {
		out[DomainDS] = generateDS(data)
	}
	return out
}

func generateDM(data *StudyData, now time.Time) []DMRow {
	rows := make([]DMRow, 0, len(data.Subjects))
	for _, sub := range data.Subjects {
		row := DMRow{
			STUDYID: data.Study.Identifier,
			DOMAIN:  "DM",
			USUBJID: sub.SubjectID,
			SITEID:  siteID,
			SEX:     deriveSex(sub.Gender),
			RACE:    notReported,
			ETHNIC:  notReported,
			COUNTRY: stringOr(sub.Country, defaultCntry),
			RFSTDTC: formatDate(sub.EnrollmentDate),
			RFENDTC: formatDate(sub.CompletionDate),
		}
		if age := deriveAge(sub.DateOfBirth, now); age != nil {
			ageu := "YEARS"
			row.AGE = age
			row.AGEU = &ageu
		}
		rows = append(rows, row)
	}
	return rows
}

func generateQS(data *StudyData, now time.Time) []QSRow {
	var rows []QSRow
	for _, resp := range data.Responses {
		qscat := resp.Title
		if qscat == "" {
			qscat = "QUESTIONNAIRE"
		}
		qsdtc := now.Format("2006-01-02")
		if resp.SubmittedAt != nil {
			qsdtc = resp.SubmittedAt.Format("2006-01-02")
		}
		// QSSEQ restarts at 1 for every response.
		for seq, item := range resp.Items {
			rows = append(rows, QSRow{
				STUDYID:  data.Study.Identifier,
				DOMAIN:   "QS",
				USUBJID:  resp.ParticipantID,
				QSSEQ:    seq + 1,
				QSCAT:    qscat,
				QSTEST:   item.Key,
				QSTESTCD: testCode(item.Key),
				QSORRES:  item.Value,
				QSSTRESC: item.Value,
				QSDTC:    qsdtc,
				VISITNUM: 1,
				VISIT:    "SCREENING",
			})
		}
	}
	return rows
}

func generateDS(data *StudyData) []DSRow {
	rows := make([]DSRow, 0, len(data.Subjects))
	for i, sub := range data.Subjects {
		term := strings.ToUpper(sub.Status)
		if term == "" {
			term = "ONGOING"
		}
		rows = append(rows, DSRow{
			STUDYID: data.Study.Identifier,
			DOMAIN:  "DS",
			USUBJID: sub.SubjectID,
			DSSEQ:   i + 1,
			DSTERM:  term,
			DSDECOD: term,
			DSCAT:   "DISPOSITION EVENT",
			DSSTDTC: formatDate(sub.EnrollmentDate),
			DSENDTC: formatDate(sub.CompletionDate),
		})
	}
	return rows
}

// deriveAge computes completed years as floor((now-dob)/365.25 days).
func deriveAge(dob *time.Time, now time.Time) *int {
	if dob == nil {
		return nil
	}
	days := now.Sub(*dob).Hours() / 24
	age := int(days / 365.25)
	return &age
}

// deriveSex keeps the first rune so a multi-byte gender value cannot
// produce a broken UTF-8 fragment.
func deriveSex(gender *string) string {
	if gender == nil || *gender == "" {
		return "U"
	}
	r, _ := utf8.DecodeRuneInString(*gender)
	return string(unicode.ToUpper(r))
}

// testCode derives QSTESTCD: the question key uppercased, truncated to
// the 8-character SDTM limit.
func testCode(key string) string {
	code := strings.ToUpper(key)
	if len(code) > 8 {
		code = code[:8]
	}
	return code
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

func stringOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
