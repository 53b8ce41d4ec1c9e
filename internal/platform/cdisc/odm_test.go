package cdisc

import "testing"

func TestGenerateODM_Shape(t *testing.T) {
	odm := GenerateODM(testStudyData().Study)
	mdv := odm.Study.MetaDataVersion

	if odm.Study.OID != "S.PX-01" {
		t.Errorf("study OID wrong: %s", odm.Study.OID)
	}
	if odm.Study.GlobalVariables.StudyName != "Demo" || odm.Study.GlobalVariables.ProtocolName != "PX-01" {
		t.Errorf("global variables wrong: %+v", odm.Study.GlobalVariables)
	}
	if len(mdv.StudyEventDefs) != 1 || mdv.StudyEventDefs[0].Name != "Screening" {
		t.Fatalf("expected single Screening event, got %+v", mdv.StudyEventDefs)
	}
	if len(mdv.FormDefs) != 2 {
		t.Fatalf("expected 2 forms, got %d", len(mdv.FormDefs))
	}
	if mdv.FormDefs[0].Name != "Demographics" || mdv.FormDefs[1].Name != "Questionnaires" {
		t.Errorf("form names wrong: %+v", mdv.FormDefs)
	}
	if len(mdv.ItemGroupDefs) != 2 || mdv.ItemGroupDefs[0].Domain != "DM" || mdv.ItemGroupDefs[1].Domain != "QS" {
		t.Errorf("item groups wrong: %+v", mdv.ItemGroupDefs)
	}
	if len(mdv.CodeLists) != 1 || mdv.CodeLists[0].OID != "CL.SEX" {
		t.Fatalf("expected single SEX code list, got %+v", mdv.CodeLists)
	}
	codes := map[string]bool{}
	for _, item := range mdv.CodeLists[0].Items {
		codes[item.CodedValue] = true
	}
	for _, want := range []string{"M", "F", "U"} {
		if !codes[want] {
			t.Errorf("SEX code list missing %s", want)
		}
	}
}

func TestGenerateODM_IgnoresRowData(t *testing.T) {
	data := testStudyData()
	withSubjects := *data
	withSubjects.Subjects = []Subject{{ID: "p1", SubjectID: "001"}}

	a := GenerateODM(data.Study)
	b := GenerateODM(withSubjects.Study)
	if len(a.Study.MetaDataVersion.ItemDefs) != len(b.Study.MetaDataVersion.ItemDefs) {
		t.Error("metadata tree must not depend on participant data")
	}
}
