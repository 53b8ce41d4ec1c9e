package cdisc

// ODM is the metadata tree describing the study's data collection
// structure. Its shape is fixed: one screening event, a demographics form
// and a questionnaires form bound to the DM and QS domains, an item
// catalog, and the SEX code list. Row data never influences it.
type ODM struct {
	Study ODMStudy `json:"study"`
}

type ODMStudy struct {
	OID             string          `json:"oid"`
	GlobalVariables GlobalVariables `json:"globalVariables"`
	MetaDataVersion MetaDataVersion `json:"metaDataVersion"`
}

type GlobalVariables struct {
	StudyName        string `json:"studyName"`
	StudyDescription string `json:"studyDescription"`
	ProtocolName     string `json:"protocolName"`
}

type MetaDataVersion struct {
	OID            string          `json:"oid"`
	Name           string          `json:"name"`
	StudyEventDefs []StudyEventDef `json:"studyEventDefs"`
	FormDefs       []FormDef       `json:"formDefs"`
	ItemGroupDefs  []ItemGroupDef  `json:"itemGroupDefs"`
	ItemDefs       []ItemDef       `json:"itemDefs"`
	CodeLists      []CodeList      `json:"codeLists"`
}

type StudyEventDef struct {
	OID       string   `json:"oid"`
	Name      string   `json:"name"`
	Repeating string   `json:"repeating"`
	Type      string   `json:"type"`
	FormOIDs  []string `json:"formOids"`
}

type FormDef struct {
	OID           string   `json:"oid"`
	Name          string   `json:"name"`
	Repeating     string   `json:"repeating"`
	ItemGroupOIDs []string `json:"itemGroupOids"`
}

type ItemGroupDef struct {
	OID      string    `json:"oid"`
	Name     string    `json:"name"`
	Domain   string    `json:"domain"`
	ItemRefs []ItemRef `json:"itemRefs"`
}

type ItemRef struct {
	ItemOID   string `json:"itemOid"`
	Mandatory string `json:"mandatory"`
}

type ItemDef struct {
	OID         string `json:"oid"`
	Name        string `json:"name"`
	DataType    string `json:"dataType"`
	Length      int    `json:"length,omitempty"`
	CodeListOID string `json:"codeListOid,omitempty"`
}

type CodeList struct {
	OID      string         `json:"oid"`
	Name     string         `json:"name"`
	DataType string         `json:"dataType"`
	Items    []CodeListItem `json:"items"`
}

type CodeListItem struct {
	CodedValue string `json:"codedValue"`
	Decode     string `json:"decode"`
}

// GenerateODM builds the metadata tree for a study. Pure function of the
// study header.
func GenerateODM(study StudyInfo) *ODM {
	return &ODM{
		Study: ODMStudy{
			OID: "S." + study.Identifier,
			GlobalVariables: GlobalVariables{
				StudyName:        study.Name,
				StudyDescription: study.Name + " data collection metadata",
				ProtocolName:     study.Protocol,
			},
			MetaDataVersion: MetaDataVersion{
				OID:  "MDV.1",
				Name: "Metadata Version 1",
				StudyEventDefs: []StudyEventDef{
					{
						OID:       "SE.SCREENING",
						Name:      "Screening",
						Repeating: "No",
						Type:      "Scheduled",
						FormOIDs:  []string{"F.DEMOGRAPHICS", "F.QUESTIONNAIRES"},
					},
				},
				FormDefs: []FormDef{
					{
						OID:           "F.DEMOGRAPHICS",
						Name:          "Demographics",
						Repeating:     "No",
						ItemGroupOIDs: []string{"IG.DM"},
					},
					{
						OID:           "F.QUESTIONNAIRES",
						Name:          "Questionnaires",
						Repeating:     "Yes",
						ItemGroupOIDs: []string{"IG.QS"},
					},
				},
				ItemGroupDefs: []ItemGroupDef{
					{
						OID:    "IG.DM",
						Name:   "Demographics",
						Domain: "DM",
						ItemRefs: []ItemRef{
							{ItemOID: "IT.DM.SUBJID", Mandatory: "Yes"},
							{ItemOID: "IT.DM.BRTHDTC", Mandatory: "No"},
							{ItemOID: "IT.DM.SEX", Mandatory: "Yes"},
							{ItemOID: "IT.DM.COUNTRY", Mandatory: "No"},
						},
					},
					{
						OID:    "IG.QS",
						Name:   "Questionnaires",
						Domain: "QS",
						ItemRefs: []ItemRef{
							{ItemOID: "IT.QS.QSTESTCD", Mandatory: "Yes"},
							{ItemOID: "IT.QS.QSORRES", Mandatory: "No"},
							{ItemOID: "IT.QS.QSDTC", Mandatory: "No"},
						},
					},
				},
				ItemDefs: []ItemDef{
					{OID: "IT.DM.SUBJID", Name: "Subject Identifier", DataType: "text", Length: 20},
					{OID: "IT.DM.BRTHDTC", Name: "Date of Birth", DataType: "date"},
					{OID: "IT.DM.SEX", Name: "Sex", DataType: "text", Length: 1, CodeListOID: "CL.SEX"},
					{OID: "IT.DM.COUNTRY", Name: "Country", DataType: "text", Length: 3},
					{OID: "IT.QS.QSTESTCD", Name: "Question Short Name", DataType: "text", Length: 8},
					{OID: "IT.QS.QSORRES", Name: "Result or Finding in Original Units", DataType: "text"},
					{OID: "IT.QS.QSDTC", Name: "Date of Finding", DataType: "date"},
				},
				CodeLists: []CodeList{
					{
						OID:      "CL.SEX",
						Name:     "Sex",
						DataType: "text",
						Items: []CodeListItem{
							{CodedValue: "M", Decode: "Male"},
							{CodedValue: "F", Decode: "Female"},
							{CodedValue: "U", Decode: "Unknown"},
						},
					},
				},
			},
		},
	}
}
