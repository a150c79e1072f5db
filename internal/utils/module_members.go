package utils

import (
	"unicode"
	"unicode/utf8"
)

// QualifiedMemberName produces a disambiguated internal name for a named
// template or stylesheet function pulled in through xsl:include/xsl:import,
// by prefixing the importing module's alias onto the member's local name.
// Used only when two modules declare the same local name at the same import
// precedence and the merge needs a collision-free key to register both
// under; the unqualified local name still wins ordinary lookup via import
// precedence.
// Example: moduleAlias="checkout", member="renderTotal" -> "checkoutRenderTotal".
func QualifiedMemberName(moduleAlias, member string) string {
	if moduleAlias == "" || member == "" {
		return member
	}
	r, size := utf8.DecodeRuneInString(member)
	if r == utf8.RuneError && size == 0 {
		return moduleAlias
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return moduleAlias + member
	}
	return moduleAlias + string(upper) + member[size:]
}
