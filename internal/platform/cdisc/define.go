package cdisc

import (
	"encoding/xml"
	"fmt"
	"time"
)

// Domain display names for Define.xml. Unknown codes fall back to the
// code itself.
var domainNames = map[Domain]string{
	DomainDM: "Demographics",
	DomainQS: "Questionnaires",
	DomainDS: "Disposition",
	DomainAE: "Adverse Events",
	DomainCM: "Concomitant Medications",
	DomainVS: "Vital Signs",
	DomainLB: "Laboratory Test Results",
}

// Domain observation classes. Unknown codes default to FINDINGS.
var domainClasses = map[Domain]string{
	DomainDM: "SPECIAL PURPOSE",
	DomainDS: "SPECIAL PURPOSE",
	DomainQS: "QUESTIONNAIRES",
	DomainAE: "EVENTS",
	DomainCM: "INTERVENTIONS",
	DomainVS: "FINDINGS",
	DomainLB: "FINDINGS",
}

// Domain-specific variables beyond the three common keys. Only DM and QS
// carry defined item sets; other domains list the keys alone.
var domainItems = map[Domain][]string{
	DomainDM: {"SITEID", "AGE", "AGEU", "SEX", "RACE", "ETHNIC", "COUNTRY", "RFSTDTC", "RFENDTC"},
	DomainQS: {"QSSEQ", "QSCAT", "QSTEST", "QSTESTCD", "QSORRES", "QSSTRESC", "QSDTC", "VISITNUM", "VISIT"},
}

type defineODM struct {
	XMLName          xml.Name     `xml:"ODM"`
	FileOID          string       `xml:"FileOID,attr"`
	FileType         string       `xml:"FileType,attr"`
	ODMVersion       string       `xml:"ODMVersion,attr"`
	CreationDateTime string       `xml:"CreationDateTime,attr"`
	Study            defineStudy  `xml:"Study"`
}

type defineStudy struct {
	OID             string              `xml:"OID,attr"`
	StudyName       string              `xml:"GlobalVariables>StudyName"`
	ProtocolName    string              `xml:"GlobalVariables>ProtocolName"`
	MetaDataVersion defineMetaData      `xml:"MetaDataVersion"`
}

type defineMetaData struct {
	OID           string               `xml:"OID,attr"`
	Name          string               `xml:"Name,attr"`
	ItemGroupDefs []defineItemGroupDef `xml:"ItemGroupDef"`
}

type defineItemGroupDef struct {
	OID      string          `xml:"OID,attr"`
	Name     string          `xml:"Name,attr"`
	Domain   string          `xml:"Domain,attr"`
	Class    string          `xml:"Class,attr"`
	Purpose  string          `xml:"Purpose,attr"`
	ItemRefs []defineItemRef `xml:"ItemRef"`
}

type defineItemRef struct {
	ItemOID     string `xml:"ItemOID,attr"`
	OrderNumber int    `xml:"OrderNumber,attr"`
	KeySequence int    `xml:"KeySequence,attr,omitempty"`
	Mandatory   string `xml:"Mandatory,attr"`
}

// GenerateDefine renders the Define.xml document for the requested
// domains: one ItemGroupDef per domain, the three common key variables
// first (key sequence 1 to 3), then the domain's own variables. Purely a
// static transformation of the domain set.
func GenerateDefine(study StudyInfo, domains []Domain, now time.Time) (string, error) {
	doc := defineODM{
		FileOID:          "define-" + study.Identifier,
		FileType:         "Snapshot",
		ODMVersion:       "1.3.2",
		CreationDateTime: now.Format(time.RFC3339),
		Study: defineStudy{
			OID:          "S." + study.Identifier,
			StudyName:    study.Name,
			ProtocolName: study.Protocol,
			MetaDataVersion: defineMetaData{
				OID:  "MDV.DEFINE.1",
				Name: "Define-XML metadata",
			},
		},
	}
	for _, d := range domains {
		doc.Study.MetaDataVersion.ItemGroupDefs = append(
			doc.Study.MetaDataVersion.ItemGroupDefs, defineItemGroup(d))
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render define.xml: %w", err)
	}
	return xml.Header + string(out), nil
}

func defineItemGroup(d Domain) defineItemGroupDef {
	name, ok := domainNames[d]
	if !ok {
		name = string(d)
	}
	class, ok := domainClasses[d]
	if !ok {
		class = "FINDINGS"
	}
	group := defineItemGroupDef{
		OID:     "IG." + string(d),
		Name:    name,
		Domain:  string(d),
		Class:   class,
		Purpose: "Tabulation",
	}
	order := 0
	for i, key := range []string{"STUDYID", "DOMAIN", "USUBJID"} {
		order++
		group.ItemRefs = append(group.ItemRefs, defineItemRef{
			ItemOID:     itemOID(d, key),
			OrderNumber: order,
			KeySequence: i + 1,
			Mandatory:   "Yes",
		})
	}
	for _, item := range domainItems[d] {
		order++
		group.ItemRefs = append(group.ItemRefs, defineItemRef{
			ItemOID:     itemOID(d, item),
			OrderNumber: order,
			Mandatory:   "No",
		})
	}
	return group
}

func itemOID(d Domain, variable string) string {
	return fmt.Sprintf("IT.%s.%s", d, variable)
}
