package cdisc

import (
	"encoding/json"
	"testing"
)

func TestGenerateADaM_RowPerParticipant(t *testing.T) {
	data := testStudyData()
	data.Subjects = []Subject{
		{ID: "p1", SubjectID: "001", Gender: str("female"), Arm: str("treatment"),
			DateOfBirth: date(1990, 4, 1), EnrollmentDate: date(2024, 1, 10)},
		{ID: "p2", SubjectID: "002"},
	}
	ds := GenerateADaM(data, testNow)
	if len(ds.ADSL) != 2 {
		t.Fatalf("expected 2 ADSL rows, got %d", len(ds.ADSL))
	}

	row := ds.ADSL[0]
	if row.USUBJID != "001" || row.SUBJID != "001" {
		t.Errorf("expected both subject identifiers set to 001, got %s/%s", row.USUBJID, row.SUBJID)
	}
	if row.AGE == nil || *row.AGE != 34 {
		t.Errorf("expected AGE 34, got %v", row.AGE)
	}
	if row.AGEGR1 != nil {
		t.Errorf("expected null AGEGR1, got %v", row.AGEGR1)
	}
	if row.SAFFL != "Y" || row.ITTFL != "Y" || row.EFFFL != "Y" || row.DTHFL != "N" {
		t.Errorf("population flags wrong: %+v", row)
	}
	if row.TRT01P != "treatment" || row.TRT01A != "treatment" {
		t.Errorf("treatment variables wrong: %+v", row)
	}

	unassigned := ds.ADSL[1]
	if unassigned.TRT01P != "NOT ASSIGNED" || unassigned.TRT01A != "NOT ASSIGNED" {
		t.Errorf("expected NOT ASSIGNED default, got %+v", unassigned)
	}
}

func TestADSLRow_AGEGR1MarshalsAsNull(t *testing.T) {
	out, err := json.Marshal(ADSLRow{USUBJID: "001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]interface{}
	json.Unmarshal(out, &decoded)
	val, present := decoded["AGEGR1"]
	if !present || val != nil {
		t.Errorf("expected AGEGR1 null, got %v (present %t)", val, present)
	}
}
