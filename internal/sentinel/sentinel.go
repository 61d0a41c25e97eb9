package sentinel

// Compile-time check that Error implements the error interface.
var _ error = Error("")

// Error is an immutable error backed by a string constant. It exists so
// that sentinel errors can be declared as const rather than var.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
