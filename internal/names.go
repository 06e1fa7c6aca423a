package internal

import "regexp"

// Names of variables, dimensions and attributes follow the netCDF rules, so
// that whatever is loaded can be written back to a netCDF file.
var (
	nameRe = regexp.MustCompile(`^[\pL\pN_][^\pC/]*$`)
	// trailing space, or a type name
	reservedRe = regexp.MustCompile(`(\pZ|^(u?byte|char|string|u?short|u?int|u?int64|uint64|float|double|enum|opaque|compound))$`)
)

// ValidName reports whether name can name a variable, a dimension or an
// attribute.
func ValidName(name string) bool {
	return nameRe.MatchString(name) && !reservedRe.MatchString(name)
}
