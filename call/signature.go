package call

import (
	"fmt"
	"strings"
)

// Signature formats c as "name(a, b = 1, rest...)".
func Signature(c Callable) string {
	var sb strings.Builder

	sb.WriteString(c.Name())
	sb.WriteByte('(')

	for i := range c.ParameterCount() {
		p, err := c.ParameterInfo(i)
		if err != nil {
			break
		}

		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(p.Name)

		switch {
		case p.Spread:
			sb.WriteString("...")
		case p.HasDefault:
			sb.WriteString(" = ")
			sb.WriteString(literal(p.Default))
		}
	}

	sb.WriteByte(')')

	return sb.String()
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", x)
	default:
		return fmt.Sprint(x)
	}
}
