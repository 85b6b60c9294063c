package materializer

import (
	"story-server/internal/schema"
)

// ToBool normalizes the boolean representations models produce.
// Only a native true or the string "true" (any case) is true; "yes", "1",
// numbers and nil are false.
func ToBool(value any) bool {
	switch v := value.(type) {
	case schema.Flag:
		return v.IsTrue()
	case *schema.Flag:
		return v != nil && v.IsTrue()
	default:
		return schema.NewFlag(value).IsTrue()
	}
}
