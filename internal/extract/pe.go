// Package extract reads PE header metadata used as classifier input.
package extract

import (
	"debug/pe"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mcules/ransomguard/internal/features"
)

// DefaultMaxScanBytes bounds how much of a file is searched for wallet addresses.
const DefaultMaxScanBytes = 64 << 20

// PE extracts header fields from Windows executables. Failures are reported
// as a nil record, never as an error or panic.
type PE struct {
	MaxScanBytes int64
	Logger       *slog.Logger
}

// Extract returns the metadata record for the file at path, or nil.
func (e PE) Extract(path string) features.RawRecord {
	rec, err := e.extract(path)
	if err != nil {
		e.logger().Debug("metadata extraction failed", "path", path, "err", err)
		return nil
	}
	return rec
}

func (e PE) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e PE) extract(path string) (rec features.RawRecord, err error) {
	// debug/pe has historically panicked on hostile inputs.
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("pe parser panic: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err = headerRecord(f)
	if err != nil {
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	limit := e.MaxScanBytes
	if limit <= 0 {
		limit = DefaultMaxScanBytes
	}
	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return nil, err
	}
	rec["BitcoinAddresses"] = int64(CountBitcoinAddresses(data))
	return rec, nil
}

func headerRecord(r io.ReaderAt) (features.RawRecord, error) {
	pf, err := pe.NewFile(r)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	rec := features.RawRecord{
		"Machine":          int64(pf.FileHeader.Machine),
		"NumberOfSections": int64(pf.FileHeader.NumberOfSections),
		"Characteristics":  int64(pf.FileHeader.Characteristics),
	}

	var dirs [16]pe.DataDirectory
	switch oh := pf.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		rec["MajorLinkerVersion"] = int64(oh.MajorLinkerVersion)
		rec["MinorLinkerVersion"] = int64(oh.MinorLinkerVersion)
		rec["MajorImageVersion"] = int64(oh.MajorImageVersion)
		rec["MajorOSVersion"] = int64(oh.MajorOperatingSystemVersion)
		rec["SizeOfStackReserve"] = int64(oh.SizeOfStackReserve)
		rec["DllCharacteristics"] = int64(oh.DllCharacteristics)
		rec["SizeOfImage"] = int64(oh.SizeOfImage)
		dirs = oh.DataDirectory
	case *pe.OptionalHeader64:
		rec["MajorLinkerVersion"] = int64(oh.MajorLinkerVersion)
		rec["MinorLinkerVersion"] = int64(oh.MinorLinkerVersion)
		rec["MajorImageVersion"] = int64(oh.MajorImageVersion)
		rec["MajorOSVersion"] = int64(oh.MajorOperatingSystemVersion)
		rec["SizeOfStackReserve"] = int64(oh.SizeOfStackReserve)
		rec["DllCharacteristics"] = int64(oh.DllCharacteristics)
		rec["SizeOfImage"] = int64(oh.SizeOfImage)
		dirs = oh.DataDirectory
	default:
		return nil, fmt.Errorf("no optional header (machine %#x)", pf.FileHeader.Machine)
	}

	export := dirs[pe.IMAGE_DIRECTORY_ENTRY_EXPORT]
	debug := dirs[pe.IMAGE_DIRECTORY_ENTRY_DEBUG]
	rec["ExportRVA"] = int64(export.VirtualAddress)
	rec["ExportSize"] = int64(export.Size)
	rec["DebugRVA"] = int64(debug.VirtualAddress)
	rec["DebugSize"] = int64(debug.Size)
	rec["IatVRA"] = int64(dirs[pe.IMAGE_DIRECTORY_ENTRY_IAT].VirtualAddress)
	rec["ResourceSize"] = int64(dirs[pe.IMAGE_DIRECTORY_ENTRY_RESOURCE].Size)

	return rec, nil
}
