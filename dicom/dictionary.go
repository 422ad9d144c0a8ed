package dicom

// DictionaryEntry describes a known DICOM attribute.
type DictionaryEntry struct {
	Keyword string
	Tag     Tag
	VR      string
}

// This is a small subset of the DICOM dictionary: the attributes used for
// querying and for identifying studies, series and instances.
var dictionary = []DictionaryEntry{
	{"SpecificCharacterSet", Tag{0x0008, 0x0005}, VR_CS},
	{"SOPClassUID", Tag{0x0008, 0x0016}, VR_UI},
	{"SOPInstanceUID", Tag{0x0008, 0x0018}, VR_UI},
	{"StudyDate", Tag{0x0008, 0x0020}, VR_DA},
	{"SeriesDate", Tag{0x0008, 0x0021}, VR_DA},
	{"StudyTime", Tag{0x0008, 0x0030}, VR_TM},
	{"AccessionNumber", Tag{0x0008, 0x0050}, VR_SH},
	{"QueryRetrieveLevel", Tag{0x0008, 0x0052}, VR_CS},
	{"RetrieveAETitle", Tag{0x0008, 0x0054}, VR_AE},
	{"Modality", Tag{0x0008, 0x0060}, VR_CS},
	{"ModalitiesInStudy", Tag{0x0008, 0x0061}, VR_CS},
	{"InstitutionName", Tag{0x0008, 0x0080}, VR_LO},
	{"ReferringPhysicianName", Tag{0x0008, 0x0090}, VR_PN},
	{"StudyDescription", Tag{0x0008, 0x1030}, VR_LO},
	{"SeriesDescription", Tag{0x0008, 0x103E}, VR_LO},
	{"InstitutionalDepartmentName", Tag{0x0008, 0x1040}, VR_LO},
	{"PerformingPhysicianName", Tag{0x0008, 0x1050}, VR_PN},
	{"NameOfPhysiciansReadingStudy", Tag{0x0008, 0x1060}, VR_PN},
	{"OperatorsName", Tag{0x0008, 0x1070}, VR_PN},
	{"PatientName", Tag{0x0010, 0x0010}, VR_PN},
	{"PatientID", Tag{0x0010, 0x0020}, VR_LO},
	{"PatientBirthDate", Tag{0x0010, 0x0030}, VR_DA},
	{"PatientSex", Tag{0x0010, 0x0040}, VR_CS},
	{"PatientAge", Tag{0x0010, 0x1010}, VR_AS},
	{"BodyPartExamined", Tag{0x0018, 0x0015}, VR_CS},
	{"ProtocolName", Tag{0x0018, 0x1030}, VR_LO},
	{"StudyInstanceUID", Tag{0x0020, 0x000D}, VR_UI},
	{"SeriesInstanceUID", Tag{0x0020, 0x000E}, VR_UI},
	{"StudyID", Tag{0x0020, 0x0010}, VR_SH},
	{"SeriesNumber", Tag{0x0020, 0x0011}, VR_IS},
	{"InstanceNumber", Tag{0x0020, 0x0013}, VR_IS},
	{"PatientOrientation", Tag{0x0020, 0x0020}, VR_CS},
	{"NumberOfStudyRelatedSeries", Tag{0x0020, 0x1206}, VR_IS},
	{"NumberOfStudyRelatedInstances", Tag{0x0020, 0x1208}, VR_IS},
	{"NumberOfSeriesRelatedInstances", Tag{0x0020, 0x1209}, VR_IS},
}

var (
	byKeyword = make(map[string]DictionaryEntry, len(dictionary))
	byTag     = make(map[Tag]DictionaryEntry, len(dictionary))
)

func init() {
	for _, entry := range dictionary {
		byKeyword[entry.Keyword] = entry
		byTag[entry.Tag] = entry
	}
}

// Tags used to place datasets in the study/series/instance hierarchy.
var (
	TagSOPInstanceUID     = Tag{0x0008, 0x0018}
	TagQueryRetrieveLevel = Tag{0x0008, 0x0052}
	TagStudyInstanceUID   = Tag{0x0020, 0x000D}
	TagSeriesInstanceUID  = Tag{0x0020, 0x000E}
)

// LookupKeyword returns the dictionary entry for a keyword such as
// "StudyInstanceUID".
func LookupKeyword(keyword string) (DictionaryEntry, bool) {
	entry, ok := byKeyword[keyword]
	return entry, ok
}

// TagForKeyword returns the tag for a keyword.
func TagForKeyword(keyword string) (Tag, bool) {
	entry, ok := byKeyword[keyword]
	return entry.Tag, ok
}

// VRForTag returns the VR for a known tag, or UN.
func VRForTag(tag Tag) string {
	if entry, ok := byTag[tag]; ok {
		return entry.VR
	}
	return VR_UN
}
