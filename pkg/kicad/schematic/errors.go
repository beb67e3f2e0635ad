package schematic

import "errors"

// Errors returned by the schematic package. Callers match them with errors.Is.
var (
	ErrNotSchematic       = errors.New("not a KiCad schematic file")
	ErrUnsupportedVersion = errors.New("unsupported KiCad version")
	ErrSymbolNotFound     = errors.New("symbol not found")
	ErrLibSymbolNotFound  = errors.New("library symbol not found")
	ErrPinNotFound        = errors.New("pin not found")
	ErrDetached           = errors.New("element is not part of the document")
)
