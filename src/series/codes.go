package series

// -----------------------------------------------------------------------------
// Parameter code mapping. Records arrive tagged with a provider parameter
// code; only the codes listed here are ingested, everything else is skipped.
// -----------------------------------------------------------------------------

type ParameterSpec struct {
	Parameter string // pathname C part
	Unit      string
	DataType  string
	Version   string // pathname F part
}

var parameterCodes = map[string]ParameterSpec{
	"00065": {Parameter: "Stage", Unit: "feet", DataType: "INST-VAL", Version: "a2w"},
	"00061": {Parameter: "Flow", Unit: "cfs", DataType: "PER-AVER", Version: "a2w"},
	"00060": {Parameter: "Flow", Unit: "cfs", DataType: "INST-VAL", Version: "a2w"},
}

// -----------------------------------------------------------------------------

// LookupParameter resolves a provider parameter code to its series attributes.
func LookupParameter(code string) (ParameterSpec, bool) {
	spec, ok := parameterCodes[code]
	return spec, ok
}
