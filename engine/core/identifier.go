package core

import (
	"fmt"

	"github.com/google/uuid"
)

// IdentifierNew returns a debug name of the form "<kind>.<short uuid>". It is used when
// an object is created without an explicit name.
func IdentifierNew(kind string) string {
	id := uuid.New()
	return fmt.Sprintf("%s.%s", kind, id.String()[:8])
}

// IdentifierOrDefault keeps name when it is set, otherwise generates one for kind.
func IdentifierOrDefault(name, kind string) string {
	if name != "" {
		return name
	}
	return IdentifierNew(kind)
}
