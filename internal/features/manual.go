package features

// ManualInput is the JSON body of a manual prediction. Pointers distinguish an
// absent column from an explicit zero.
type ManualInput struct {
	Machine            *int64 `json:"Machine"`
	DebugSize          *int64 `json:"DebugSize"`
	DebugRVA           *int64 `json:"DebugRVA"`
	MajorImageVersion  *int64 `json:"MajorImageVersion"`
	MajorOSVersion     *int64 `json:"MajorOSVersion"`
	ExportRVA          *int64 `json:"ExportRVA"`
	ExportSize         *int64 `json:"ExportSize"`
	IatVRA             *int64 `json:"IatVRA"`
	MajorLinkerVersion *int64 `json:"MajorLinkerVersion"`
	MinorLinkerVersion *int64 `json:"MinorLinkerVersion"`
	NumberOfSections   *int64 `json:"NumberOfSections"`
	SizeOfStackReserve *int64 `json:"SizeOfStackReserve"`
	DllCharacteristics *int64 `json:"DllCharacteristics"`
	ResourceSize       *int64 `json:"ResourceSize"`
	BitcoinAddresses   *int64 `json:"BitcoinAddresses"`
}

func (in *ManualInput) columns() [NumFields]*int64 {
	return [NumFields]*int64{
		Machine:            in.Machine,
		DebugSize:          in.DebugSize,
		DebugRVA:           in.DebugRVA,
		MajorImageVersion:  in.MajorImageVersion,
		MajorOSVersion:     in.MajorOSVersion,
		ExportRVA:          in.ExportRVA,
		ExportSize:         in.ExportSize,
		IatVRA:             in.IatVRA,
		MajorLinkerVersion: in.MajorLinkerVersion,
		MinorLinkerVersion: in.MinorLinkerVersion,
		NumberOfSections:   in.NumberOfSections,
		SizeOfStackReserve: in.SizeOfStackReserve,
		DllCharacteristics: in.DllCharacteristics,
		ResourceSize:       in.ResourceSize,
		BitcoinAddresses:   in.BitcoinAddresses,
	}
}

// Validate rejects inputs that do not carry every schema column.
func (in *ManualInput) Validate() error {
	var missing []string
	for i, p := range in.columns() {
		if p == nil {
			missing = append(missing, fieldNames[i])
		}
	}
	if len(missing) > 0 {
		return &MissingFieldError{Fields: missing}
	}
	return nil
}

// Record packages a validated input. Absent columns read as zero, so callers
// must Validate first.
func (in *ManualInput) Record() Record {
	var rec Record
	for i, p := range in.columns() {
		if p != nil {
			rec.Set(Field(i), *p)
		}
	}
	return rec
}
