package participants

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sandily/bidskit/internal/services"
)

const (
	UnknownSex = "Unknown"
	UnknownAge = "0"
)

// Demographics is the participant summary taken from one DICOM header.
type Demographics struct {
	Sex string
	Age string
	// Source is the DICOM file the values were read from.
	Source string
}

// ParseFunc decodes one DICOM file. Tests substitute a fake.
type ParseFunc func(path string) (dicom.Dataset, error)

// ParseHeader reads a DICOM file without its pixel data.
func ParseHeader(path string) (dicom.Dataset, error) {
	return dicom.ParseFile(path, nil, dicom.SkipPixelData())
}

var errFound = errors.New("found")

// ReadDemographics walks dir in lexical order and summarizes the first file
// that parses as DICOM.
func ReadDemographics(dir string, parse ParseFunc) (Demographics, error) {
	if parse == nil {
		parse = ParseHeader
	}
	var demo Demographics
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		ds, perr := parse(path)
		if perr != nil {
			return nil
		}
		demo = FromDataset(ds)
		demo.Source = path
		return errFound
	})
	if errors.Is(err, errFound) {
		return demo, nil
	}
	if err != nil {
		return Demographics{}, services.Wrap(services.ErrAbort, "participants", "read demographics", "Cannot walk "+dir, err)
	}
	return Demographics{}, services.Wrap(services.ErrAbort, "participants", "read demographics",
		"No DICOM header information found in "+dir+"; confirm the images in this folder are uncompressed DICOM", nil)
}

// FromDataset extracts sex and age, falling back to the unknown sentinels.
func FromDataset(ds dicom.Dataset) Demographics {
	demo := Demographics{Sex: UnknownSex, Age: UnknownAge}
	if sex, ok := firstString(ds, tag.PatientSex); ok {
		demo.Sex = cases.Upper(language.Und).String(sex)
	}
	if age, ok := firstString(ds, tag.PatientAge); ok {
		demo.Age = age
	}
	return demo
}

func firstString(ds dicom.Dataset, t tag.Tag) (string, bool) {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil || elem.Value == nil {
		return "", false
	}
	values, ok := elem.Value.GetValue().([]string)
	if !ok || len(values) == 0 {
		return "", false
	}
	value := strings.TrimSpace(strings.TrimRight(values[0], "\x00"))
	if value == "" {
		return "", false
	}
	return value, true
}
