package core

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateResourceName returns a unique name for resources created without
// one. Names feed logs and debug output only, so a random suffix is enough
// and no registry is kept.
func GenerateResourceName(prefix string) string {
	return fmt.Sprintf("%s.%s", prefix, uuid.New().String())
}
