package cdisc

import (
	"encoding/xml"
	"strings"
	"testing"
)

func parseDefine(t *testing.T, doc string) defineODM {
	t.Helper()
	var out defineODM
	if err := xml.Unmarshal([]byte(strings.TrimPrefix(doc, xml.Header)), &out); err != nil {
		t.Fatalf("parse define.xml: %v", err)
	}
	return out
}

func TestGenerateDefine_GroupPerDomain(t *testing.T) {
	doc, err := GenerateDefine(testStudyData().Study, []Domain{DomainDM, DomainQS, DomainDS}, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := parseDefine(t, doc)
	groups := out.Study.MetaDataVersion.ItemGroupDefs
	if len(groups) != 3 {
		t.Fatalf("expected 3 item groups, got %d", len(groups))
	}

	byDomain := make(map[string]defineItemGroupDef)
	for _, g := range groups {
		byDomain[g.Domain] = g
	}
	if byDomain["DM"].Name != "Demographics" || byDomain["DM"].Class != "SPECIAL PURPOSE" {
		t.Errorf("DM group wrong: %+v", byDomain["DM"])
	}
	if byDomain["QS"].Name != "Questionnaires" || byDomain["QS"].Class != "QUESTIONNAIRES" {
		t.Errorf("QS group wrong: %+v", byDomain["QS"])
	}
	if byDomain["DS"].Name != "Disposition" || byDomain["DS"].Class != "SPECIAL PURPOSE" {
		t.Errorf("DS group wrong: %+v", byDomain["DS"])
	}
}

func TestGenerateDefine_CommonKeysFirst(t *testing.T) {
	doc, err := GenerateDefine(testStudyData().Study, []Domain{DomainDM}, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := parseDefine(t, doc)
	refs := out.Study.MetaDataVersion.ItemGroupDefs[0].ItemRefs

	wantFirst := []string{"IT.DM.STUDYID", "IT.DM.DOMAIN", "IT.DM.USUBJID"}
	for i, oid := range wantFirst {
		if refs[i].ItemOID != oid || refs[i].KeySequence != i+1 {
			t.Errorf("position %d: expected %s key seq %d, got %+v", i, oid, i+1, refs[i])
		}
	}
	// DM carries its own variables after the keys.
	if len(refs) != 3+len(domainItems[DomainDM]) {
		t.Errorf("expected %d refs, got %d", 3+len(domainItems[DomainDM]), len(refs))
	}
}

func TestGenerateDefine_UnknownDomainFallsBack(t *testing.T) {
	doc, err := GenerateDefine(testStudyData().Study, []Domain{Domain("XX")}, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := parseDefine(t, doc)
	group := out.Study.MetaDataVersion.ItemGroupDefs[0]
	if group.Name != "XX" {
		t.Errorf("expected name to fall back to code, got %s", group.Name)
	}
	if group.Class != "FINDINGS" {
		t.Errorf("expected default class FINDINGS, got %s", group.Class)
	}
	if len(group.ItemRefs) != 3 {
		t.Errorf("expected common keys only, got %d refs", len(group.ItemRefs))
	}
}
