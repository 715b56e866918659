package features

// Field identifies one column of the feature schema. The numeric value is the
// column position the predictor was trained with.
type Field int

const (
	Machine Field = iota
	DebugSize
	DebugRVA
	MajorImageVersion
	MajorOSVersion
	ExportRVA
	ExportSize
	IatVRA
	MajorLinkerVersion
	MinorLinkerVersion
	NumberOfSections
	SizeOfStackReserve
	DllCharacteristics
	ResourceSize
	BitcoinAddresses

	// NumFields is the length of every feature vector.
	NumFields int = iota
)

var fieldNames = [NumFields]string{
	Machine:            "Machine",
	DebugSize:          "DebugSize",
	DebugRVA:           "DebugRVA",
	MajorImageVersion:  "MajorImageVersion",
	MajorOSVersion:     "MajorOSVersion",
	ExportRVA:          "ExportRVA",
	ExportSize:         "ExportSize",
	IatVRA:             "IatVRA",
	MajorLinkerVersion: "MajorLinkerVersion",
	MinorLinkerVersion: "MinorLinkerVersion",
	NumberOfSections:   "NumberOfSections",
	SizeOfStackReserve: "SizeOfStackReserve",
	DllCharacteristics: "DllCharacteristics",
	ResourceSize:       "ResourceSize",
	BitcoinAddresses:   "BitcoinAddresses",
}

func (f Field) String() string {
	if f < 0 || int(f) >= NumFields {
		return "unknown"
	}
	return fieldNames[f]
}

// Names returns the schema column names in predictor order.
// The returned slice is a copy.
func Names() []string {
	out := make([]string, NumFields)
	copy(out, fieldNames[:])
	return out
}

// Lookup resolves a column name to its field.
func Lookup(name string) (Field, bool) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), true
		}
	}
	return 0, false
}

// Vector is one schema-ordered row ready for inference.
type Vector [NumFields]float64

// Get returns the value stored for f.
func (v Vector) Get(f Field) float64 {
	return v[f]
}
