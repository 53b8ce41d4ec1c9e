package cdisc

import "time"

// ADSLRow is one subject-level analysis record. Every participant is
// assumed in all analysis populations: no exclusion logic exists upstream.
type ADSLRow struct {
	STUDYID string  `json:"STUDYID"`
	USUBJID string  `json:"USUBJID"`
	SUBJID  string  `json:"SUBJID"`
	SITEID  string  `json:"SITEID"`
	AGE     *int    `json:"AGE"`
	AGEGR1  *string `json:"AGEGR1"`
	SEX     string  `json:"SEX"`
	RACE    string  `json:"RACE"`
	ETHNIC  string  `json:"ETHNIC"`
	COUNTRY string  `json:"COUNTRY"`
	RFSTDTC *string `json:"RFSTDTC"`
	RFENDTC *string `json:"RFENDTC"`
	DTHFL   string  `json:"DTHFL"`
	SAFFL   string  `json:"SAFFL"`
	ITTFL   string  `json:"ITTFL"`
	EFFFL   string  `json:"EFFFL"`
	TRT01P  string  `json:"TRT01P"`
	TRT01A  string  `json:"TRT01A"`
}

// Datasets holds the ADaM analysis datasets. ADSL is the only one
// derivable from the collected data.
type Datasets struct {
	ADSL []ADSLRow `json:"ADSL"`
}

// GenerateADaM builds the subject-level analysis dataset, one row per
// participant. AGEGR1 stays null: no grouping rule is defined upstream.
func GenerateADaM(data *StudyData, now time.Time) *Datasets {
	rows := make([]ADSLRow, 0, len(data.Subjects))
	for _, sub := range data.Subjects {
		treatment := stringOr(sub.Arm, "NOT ASSIGNED")
		row := ADSLRow{
			STUDYID: data.Study.Identifier,
			USUBJID: sub.SubjectID,
			SUBJID:  sub.SubjectID,
			SITEID:  siteID,
			SEX:     deriveSex(sub.Gender),
			RACE:    notReported,
			ETHNIC:  notReported,
			COUNTRY: stringOr(sub.Country, defaultCntry),
			RFSTDTC: formatDate(sub.EnrollmentDate),
			RFENDTC: formatDate(sub.CompletionDate),
			DTHFL:   "N",
			SAFFL:   "Y",
			ITTFL:   "Y",
			EFFFL:   "Y",
			TRT01P:  treatment,
			TRT01A:  treatment,
		}
		row.AGE = deriveAge(sub.DateOfBirth, now)
		rows = append(rows, row)
	}
	return &Datasets{ADSL: rows}
}
