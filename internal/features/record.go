package features

// Record is the typed form of one sample. Field declaration order matches the
// schema so JSON output lists columns in predictor order.
type Record struct {
	Machine            int64 `json:"Machine"`
	DebugSize          int64 `json:"DebugSize"`
	DebugRVA           int64 `json:"DebugRVA"`
	MajorImageVersion  int64 `json:"MajorImageVersion"`
	MajorOSVersion     int64 `json:"MajorOSVersion"`
	ExportRVA          int64 `json:"ExportRVA"`
	ExportSize         int64 `json:"ExportSize"`
	IatVRA             int64 `json:"IatVRA"`
	MajorLinkerVersion int64 `json:"MajorLinkerVersion"`
	MinorLinkerVersion int64 `json:"MinorLinkerVersion"`
	NumberOfSections   int64 `json:"NumberOfSections"`
	SizeOfStackReserve int64 `json:"SizeOfStackReserve"`
	DllCharacteristics int64 `json:"DllCharacteristics"`
	ResourceSize       int64 `json:"ResourceSize"`
	BitcoinAddresses   int64 `json:"BitcoinAddresses"`
}

// ptr maps a schema field onto its storage in r.
func (r *Record) ptr(f Field) *int64 {
	switch f {
	case Machine:
		return &r.Machine
	case DebugSize:
		return &r.DebugSize
	case DebugRVA:
		return &r.DebugRVA
	case MajorImageVersion:
		return &r.MajorImageVersion
	case MajorOSVersion:
		return &r.MajorOSVersion
	case ExportRVA:
		return &r.ExportRVA
	case ExportSize:
		return &r.ExportSize
	case IatVRA:
		return &r.IatVRA
	case MajorLinkerVersion:
		return &r.MajorLinkerVersion
	case MinorLinkerVersion:
		return &r.MinorLinkerVersion
	case NumberOfSections:
		return &r.NumberOfSections
	case SizeOfStackReserve:
		return &r.SizeOfStackReserve
	case DllCharacteristics:
		return &r.DllCharacteristics
	case ResourceSize:
		return &r.ResourceSize
	case BitcoinAddresses:
		return &r.BitcoinAddresses
	}
	return nil
}

// Get returns the value of f.
func (r Record) Get(f Field) int64 {
	if p := r.ptr(f); p != nil {
		return *p
	}
	return 0
}

// Set stores v into f. Unknown fields are ignored.
func (r *Record) Set(f Field, v int64) {
	if p := r.ptr(f); p != nil {
		*p = v
	}
}

// Vector packs the record into predictor column order.
func (r Record) Vector() Vector {
	var v Vector
	for i := 0; i < NumFields; i++ {
		v[i] = float64(r.Get(Field(i)))
	}
	return v
}

// Map returns the record keyed by column name.
func (r Record) Map() map[string]int64 {
	out := make(map[string]int64, NumFields)
	for i := 0; i < NumFields; i++ {
		out[fieldNames[i]] = r.Get(Field(i))
	}
	return out
}
